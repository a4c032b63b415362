// Package delegation models the credential an identity provider hands to a
// client: a signed, time-bounded token that binds a user principal to an
// ed25519 session key. The client keeps the session private key and signs
// every asset-store call with it; the server checks both the token and the
// per-request signature.
package delegation

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal identifies a user or a service endpoint.
type Principal string

// Anonymous is the principal of callers without a delegation.
const Anonymous Principal = "anonymous"

func (p Principal) String() string { return string(p) }

// Claims is the payload of a delegation token.
type Claims struct {
	jwt.RegisteredClaims
	SessionKey string `json:"spk"`
}

// Principal returns the delegated principal (the token subject).
func (c *Claims) Principal() Principal {
	return Principal(c.Subject)
}

// SessionPublicKey decodes the bound session key.
func (c *Claims) SessionPublicKey() (ed25519.PublicKey, error) {
	return cryptox.DecodePublicKey(c.SessionKey)
}

// IssueOptions parameterises Issue.
type IssueOptions struct {
	Issuer     string
	Secret     []byte
	Principal  Principal
	SessionKey ed25519.PublicKey
	TTL        time.Duration
	MaxTTL     time.Duration
	Now        time.Time
}

// Issue signs a delegation for opts.Principal. A requested TTL that is zero
// or longer than MaxTTL is clamped to MaxTTL.
func Issue(opts IssueOptions) (string, *Claims, error) {
	if len(opts.Secret) == 0 {
		return "", nil, errors.New("missing secret")
	}
	if opts.Principal == "" {
		return "", nil, errors.New("missing principal")
	}
	if len(opts.SessionKey) != ed25519.PublicKeySize {
		return "", nil, errors.New("invalid session key")
	}
	ttl := opts.TTL
	if opts.MaxTTL > 0 && (ttl <= 0 || ttl > opts.MaxTTL) {
		ttl = opts.MaxTTL
	}
	if ttl <= 0 {
		return "", nil, errors.New("invalid ttl")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    opts.Issuer,
			Subject:   string(opts.Principal),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		SessionKey: cryptox.EncodeKey(opts.SessionKey),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(opts.Secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Verify checks the token signature and expiry against secret.
func Verify(token string, secret []byte, now time.Time) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrDelegationExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidDelegation, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidDelegation
	}
	return claims, nil
}

// ParseUnverified reads the claims without checking the signature. The
// client cannot verify provider signatures; it only needs the subject and
// the expiry to decide whether a stored delegation is still usable.
func ParseUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidDelegation, err)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, common.ErrInvalidDelegation
	}
	return claims, nil
}
