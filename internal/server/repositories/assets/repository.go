package assets

import (
	"context"

	"github.com/dmitrijs2005/carvault/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, asset *models.Asset) error
	Get(ctx context.Context, canisterID, key string) (*models.Asset, error)
}
