// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/dropsync/internal/dbx"
	"github.com/dmitrijs2005/dropsync/internal/server/migrations"
	"github.com/dmitrijs2005/dropsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/dropsync/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/dropsync/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

// Records returns a records.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Records(db dbx.DBTX) records.Repository {
	return records.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations runs the embedded migrations against db.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

// OpenPostgres opens dsn with the pgx driver and checks the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
