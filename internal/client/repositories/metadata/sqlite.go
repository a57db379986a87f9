package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

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

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

// GetTime reads a timestamp stored with SetTime. Absent keys yield (nil, nil).
func GetTime(ctx context.Context, r Repository, key string) (*time.Time, error) {
	raw, err := r.Get(ctx, key)
	if err != nil || raw == nil {
		return nil, err
	}
	t, err := common.ParseTimestamp(string(raw))
	if err != nil {
		return nil, fmt.Errorf("metadata[%s]: %w", key, err)
	}
	return &t, nil
}

// SetTime stores t under key.
func SetTime(ctx context.Context, r Repository, key string, t time.Time) error {
	return r.Set(ctx, key, []byte(common.FormatTimestamp(t)))
}
