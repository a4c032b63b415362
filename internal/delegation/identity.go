package delegation

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/dmitrijs2005/carvault/internal/common"
)

// Identity is a delegated identity held by the client: the provider's token
// plus the session private key it was issued for.
type Identity struct {
	token  string
	claims *Claims
	key    ed25519.PrivateKey
}

// NewIdentity pairs a delegation token with its session key and checks that
// the key is the one the token was issued for.
func NewIdentity(token string, key ed25519.PrivateKey) (*Identity, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid session key")
	}
	claims, err := ParseUnverified(token)
	if err != nil {
		return nil, err
	}
	pub, err := claims.SessionPublicKey()
	if err != nil {
		return nil, common.ErrInvalidDelegation
	}
	if !pub.Equal(key.Public()) {
		return nil, common.ErrInvalidDelegation
	}
	return &Identity{token: token, claims: claims, key: key}, nil
}

// Sender returns the principal calls are made as.
func (i *Identity) Sender() (Principal, error) {
	if i == nil || i.claims == nil {
		return "", common.ErrNoIdentity
	}
	return i.claims.Principal(), nil
}

// Delegation returns the raw token, sent along with every call.
func (i *Identity) Delegation() string {
	return i.token
}

// ExpiresAt is the end of the delegation's validity.
func (i *Identity) ExpiresAt() time.Time {
	return i.claims.ExpiresAt.Time
}

// Expired reports whether the delegation is no longer valid at now.
func (i *Identity) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt())
}

// Sign signs msg with the session key.
func (i *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(i.key, msg)
}

// SessionKey exposes the private key for persistence.
func (i *Identity) SessionKey() ed25519.PrivateKey {
	return i.key
}
