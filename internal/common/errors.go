// Package common defines shared constants and sentinel errors used across
// client and server layers of CarVault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorValidation    = errors.New("validation error")
	ErrorAlreadyExists = errors.New("already exists")

	// Configuration errors. These are fatal at startup.
	ErrUnknownNetwork = errors.New("unknown network")
	ErrMissingRootKey = errors.New("missing live root key")

	// Session errors.
	ErrNoIdentity         = errors.New("no identity")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrClientBuildFailed  = errors.New("client build failed")
	ErrReloadUnavailable  = errors.New("reload unavailable")
	ErrDelegationExpired  = errors.New("delegation expired")
	ErrInvalidDelegation  = errors.New("invalid delegation")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrIngressExpired     = errors.New("ingress expired")
	ErrInvalidCertificate = errors.New("invalid certificate")

	// Upload errors.
	ErrHashMismatch        = errors.New("content hash mismatch")
	ErrUnsupportedEncoding = errors.New("unsupported content encoding")
	ErrUnknownField        = errors.New("unknown field")
)
