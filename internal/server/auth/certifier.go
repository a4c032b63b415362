package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/carvault/internal/cryptox"
)

// Certifier signs store responses with the root key clients verify against.
type Certifier struct {
	key ed25519.PrivateKey
}

// NewCertifier derives the root key from a hex seed, or generates one when
// the seed is empty.
func NewCertifier(seedHex string) (*Certifier, error) {
	if seedHex == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return &Certifier{key: priv}, nil
	}

	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("root key seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root key seed has %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	return &Certifier{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// RootKey is the public half handed out by Status.
func (c *Certifier) RootKey() ed25519.PublicKey {
	return c.key.Public().(ed25519.PublicKey)
}

// Certify signs the binding of key to contentHash.
func (c *Certifier) Certify(key string, contentHash []byte) []byte {
	return ed25519.Sign(c.key, cryptox.CertificateDigest(key, contentHash))
}
