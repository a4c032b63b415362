// Package cryptox collects the cryptographic primitives CarVault relies on:
// password-derived verifiers for the identity provider, content hashes for
// uploads, and ed25519 session keys that sign asset-store requests.
package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"

	"golang.org/x/crypto/argon2"
)

// HashSize is the length of a content hash in bytes.
const HashSize = sha256.Size

// MakeVerifier turns a master key into the value the provider stores.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveMasterKey stretches a password with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// ContentHash returns the SHA-256 digest of content.
func ContentHash(content []byte) []byte {
	hash := sha256.Sum256(content)
	return hash[:]
}

// NewSessionKey generates a fresh ed25519 key pair for one delegation.
func NewSessionKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// EncodeKey base64-encodes a key for transport or storage.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodePublicKey parses a base64 ed25519 public key.
func DecodePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key has %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// RequestDigest is what a session key signs for one call: the RPC method,
// the ingress expiry in unix nanoseconds, and the hash of the encoded body.
func RequestDigest(method string, ingressExpiry int64, body []byte) []byte {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(ingressExpiry, 10)))
	h.Write([]byte{0})
	bodyHash := sha256.Sum256(body)
	h.Write(bodyHash[:])
	return h.Sum(nil)
}

// CertificateDigest binds a stored key to the hash of its content.
func CertificateDigest(key string, contentHash []byte) []byte {
	h := sha256.New()
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write(contentHash)
	return h.Sum(nil)
}

// Verify reports whether sig is a valid ed25519 signature of msg by pub.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
