// Package auth issues delegations and checks signed asset-store requests.
package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/delegation"
)

// MaxIngressWindow is how far in the future a request's ingress expiry may
// lie. Clients use five minutes; one more minute absorbs clock skew.
const MaxIngressWindow = 6 * time.Minute

// Authority signs delegations with an HMAC secret and verifies them, keeping
// recently verified tokens in an LRU cache.
type Authority struct {
	issuer string
	secret []byte
	maxTTL time.Duration
	now    func() time.Time
	cache  *lru.Cache[string, *delegation.Claims]
}

type Option func(*Authority)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(a *Authority) { a.now = now } }

func NewAuthority(issuer string, secret []byte, maxTTL time.Duration, cacheSize int, opts ...Option) (*Authority, error) {
	cache, err := lru.New[string, *delegation.Claims](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("delegation cache: %w", err)
	}
	a := &Authority{issuer: issuer, secret: secret, maxTTL: maxTTL, now: time.Now, cache: cache}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Issue signs a delegation binding principal to sessionKey. ttl is clamped
// to the authority's maximum.
func (a *Authority) Issue(principal delegation.Principal, sessionKey ed25519.PublicKey, ttl time.Duration) (string, *delegation.Claims, error) {
	return delegation.Issue(delegation.IssueOptions{
		Issuer:     a.issuer,
		Secret:     a.secret,
		Principal:  principal,
		SessionKey: sessionKey,
		TTL:        ttl,
		MaxTTL:     a.maxTTL,
		Now:        a.now(),
	})
}

// VerifyDelegation checks token, consulting the cache first. Cached tokens
// are still checked for expiry.
func (a *Authority) VerifyDelegation(token string) (*delegation.Claims, error) {
	now := a.now()
	if c, ok := a.cache.Get(token); ok {
		if !c.ExpiresAt.After(now) {
			a.cache.Remove(token)
			return nil, common.ErrDelegationExpired
		}
		return c, nil
	}

	c, err := delegation.Verify(token, a.secret, now)
	if err != nil {
		return nil, err
	}
	a.cache.Add(token, c)
	return c, nil
}

// CachedDelegations reports how many verified tokens are cached.
func (a *Authority) CachedDelegations() int { return a.cache.Len() }

// VerifyRequest authenticates one call: the delegation must be valid, the
// ingress expiry must lie within MaxIngressWindow from now, and sig must be
// the session key's signature over the request digest.
func (a *Authority) VerifyRequest(token, expiry, sig, method string, body []byte) (delegation.Principal, error) {
	claims, err := a.VerifyDelegation(token)
	if err != nil {
		return "", err
	}

	exp, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: bad ingress expiry", common.ErrInvalidSignature)
	}
	now := a.now()
	if exp <= now.UnixNano() {
		return "", common.ErrIngressExpired
	}
	if exp > now.Add(MaxIngressWindow).UnixNano() {
		return "", fmt.Errorf("%w: ingress expiry too far in the future", common.ErrIngressExpired)
	}

	pub, err := claims.SessionPublicKey()
	if err != nil {
		return "", common.ErrInvalidDelegation
	}
	rawSig, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidSignature, err)
	}
	if !cryptox.Verify(pub, cryptox.RequestDigest(method, exp, body), rawSig) {
		return "", common.ErrInvalidSignature
	}
	return claims.Principal(), nil
}
