// Package metadata is the client's key/value store in SQLite. It holds the
// persisted delegation and session key between runs.
package metadata

import (
	"context"
)

// Keys stored by the session layer.
const (
	KeyDelegation = "delegation"
	KeySessionKey = "session_key"
	KeyUsername   = "username"
)

var sessionKeys = []string{KeyDelegation, KeySessionKey, KeyUsername}

// Session is the login state that survives a restart.
type Session struct {
	Username   string
	Delegation string
	SessionKey []byte
}

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Keys(ctx context.Context) ([]string, error)

	SaveSession(ctx context.Context, s Session) error
	LoadSession(ctx context.Context) (*Session, error)
	ForgetSession(ctx context.Context) error
}
