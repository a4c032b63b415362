// Package idp talks to the identity provider over its JSON API: account
// registration, salt lookup, and delegation authorization.
package idp

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/netx"
)

// API paths, relative to the provider origin.
const (
	RegisterPath  = "/api/v1/register"
	SaltPath      = "/api/v1/salt"
	AuthorizePath = "/api/v1/authorize"
	HealthPath    = "/api/v1/healthz"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type SaltRequest struct {
	Username string `json:"username"`
}

type SaltResponse struct {
	Salt []byte `json:"salt"`
}

type AuthorizeRequest struct {
	Username         string `json:"username"`
	Verifier         []byte `json:"verifier"`
	SessionPublicKey string `json:"session_public_key"`
	// MaxTimeToLive is in nanoseconds.
	MaxTimeToLive int64 `json:"max_time_to_live"`
}

type AuthorizeResponse struct {
	Delegation string    `json:"delegation"`
	Principal  string    `json:"principal"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Provider is what the session store needs from an identity provider.
type Provider interface {
	Register(ctx context.Context, username string, salt, verifier []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Authorize(ctx context.Context, username string, verifier []byte, sessionKey ed25519.PublicKey, maxTTL time.Duration) (*AuthorizeResponse, error)
}

// Client is the HTTP implementation of Provider.
type Client struct {
	base       *url.URL
	httpClient *http.Client
}

// New builds a client from a provider URL such as the one returned by
// config.IdentityProviderURL. The query string (canisterId) is carried on
// every call and the fragment is dropped.
func New(providerURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(providerURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("provider url %q: unsupported scheme", providerURL)
	}
	u.Fragment = ""
	u.Path = ""
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: u, httpClient: httpClient}, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = path
	return u.String()
}

func (c *Client) Register(ctx context.Context, username string, salt, verifier []byte) error {
	req := RegisterRequest{Username: username, Salt: salt, Verifier: verifier}
	return mapError(netx.PostJSON(ctx, c.httpClient, c.endpoint(RegisterPath), req, nil))
}

func (c *Client) GetSalt(ctx context.Context, username string) ([]byte, error) {
	var resp SaltResponse
	if err := netx.PostJSON(ctx, c.httpClient, c.endpoint(SaltPath), SaltRequest{Username: username}, &resp); err != nil {
		return nil, mapError(err)
	}
	return resp.Salt, nil
}

func (c *Client) Authorize(ctx context.Context, username string, verifier []byte, sessionKey ed25519.PublicKey, maxTTL time.Duration) (*AuthorizeResponse, error) {
	req := AuthorizeRequest{
		Username:         username,
		Verifier:         verifier,
		SessionPublicKey: cryptox.EncodeKey(sessionKey),
		MaxTimeToLive:    int64(maxTTL),
	}
	var resp AuthorizeResponse
	if err := netx.PostJSON(ctx, c.httpClient, c.endpoint(AuthorizePath), req, &resp); err != nil {
		return nil, mapError(err)
	}
	if resp.Delegation == "" {
		return nil, fmt.Errorf("%w: empty delegation", common.ErrInvalidDelegation)
	}
	return &resp, nil
}

// ErrUnavailable is returned when the provider cannot be reached or fails.
var ErrUnavailable = errors.New("identity provider unavailable")

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se *netx.StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	switch {
	case se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, se.Message)
	case se.Code == http.StatusConflict:
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, se.Message)
	case se.Code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrorValidation, se.Message)
	case se.Code >= 500:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return err
	}
}
