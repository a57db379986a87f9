package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, user.UserName, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrUsernameAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, created_at FROM users
		 WHERE username = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userName).Scan(&user.ID, &user.UserName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
