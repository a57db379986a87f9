// Package refreshtokens provides a PostgreSQL-backed repository for refresh
// tokens.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
)

// PostgresRepository works over dbx.DBTX, so it can run inside a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token = $1
	`
	rt := &models.RefreshToken{Token: token}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&rt.UserID, &rt.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rt, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE token = $1
	`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireAffected(res)
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
