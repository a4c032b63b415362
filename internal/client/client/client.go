package client

import (
	"context"

	"github.com/dmitrijs2005/carvault/internal/client/models"
)

// RemoteClient is an authenticated handle on the asset store.
type RemoteClient interface {
	// Store uploads one asset and returns the key the store accepted.
	Store(ctx context.Context, canisterID string, arg models.StoreArg) (string, error)
	// Status fetches the store's root verification key.
	Status(ctx context.Context) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error
}
