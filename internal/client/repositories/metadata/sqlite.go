package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/carvault/internal/dbx"
)

// SQLiteRepository stores metadata rows through any dbx.DBTX. Run the
// session methods inside dbx.WithTx to make them atomic.
type SQLiteRepository struct {
	db dbx.DBTX
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns (nil, nil) when the key is absent.
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

// Keys lists stored keys in order.
func (r *SQLiteRepository) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM metadata ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metadata rows: %w", err)
	}
	return keys, nil
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, s Session) error {
	if err := r.Set(ctx, KeyDelegation, []byte(s.Delegation)); err != nil {
		return err
	}
	if err := r.Set(ctx, KeySessionKey, s.SessionKey); err != nil {
		return err
	}
	return r.Set(ctx, KeyUsername, []byte(s.Username))
}

// LoadSession returns (nil, nil) unless both the delegation and the session
// key are present.
func (r *SQLiteRepository) LoadSession(ctx context.Context) (*Session, error) {
	token, err := r.Get(ctx, KeyDelegation)
	if err != nil {
		return nil, err
	}
	key, err := r.Get(ctx, KeySessionKey)
	if err != nil {
		return nil, err
	}
	if len(token) == 0 || len(key) == 0 {
		return nil, nil
	}
	username, err := r.Get(ctx, KeyUsername)
	if err != nil {
		return nil, err
	}
	return &Session{Username: string(username), Delegation: string(token), SessionKey: key}, nil
}

// ForgetSession removes every session key. Absent keys are ignored.
func (r *SQLiteRepository) ForgetSession(ctx context.Context) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sessionKeys)), ",")
	args := make([]any, len(sessionKeys))
	for i, k := range sessionKeys {
		args[i] = k
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
