package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/dbx"
	"github.com/dmitrijs2005/carvault/internal/server/models"
)

// PostgresRepository implements asset metadata storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert writes asset keyed by (canister_id, key). An existing row is
// overwritten and asset.UpdatedAt is set from the database.
func (r *PostgresRepository) Upsert(ctx context.Context, asset *models.Asset) error {
	query := `
		INSERT INTO assets (canister_id, key, content_type, content_encoding, sha256, size, owner, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (canister_id, key)
		DO UPDATE SET
			content_type = EXCLUDED.content_type,
			content_encoding = EXCLUDED.content_encoding,
			sha256 = EXCLUDED.sha256,
			size = EXCLUDED.size,
			owner = EXCLUDED.owner,
			storage_key = EXCLUDED.storage_key,
			updated_at = now()
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		asset.CanisterID, asset.Key, asset.ContentType, asset.ContentEncoding,
		asset.SHA256, asset.Size, asset.Owner, asset.StorageKey,
	).Scan(&asset.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the asset or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, canisterID, key string) (*models.Asset, error) {
	query := `SELECT canister_id, key, content_type, content_encoding, sha256, size, owner, storage_key, updated_at
		FROM assets WHERE canister_id = $1 AND key = $2`

	a := &models.Asset{}
	err := r.db.QueryRowContext(ctx, query, canisterID, key).Scan(
		&a.CanisterID, &a.Key, &a.ContentType, &a.ContentEncoding,
		&a.SHA256, &a.Size, &a.Owner, &a.StorageKey, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}
