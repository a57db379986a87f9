// Package storage opens the client's local SQLite database and brings its
// schema up to date with the embedded goose migrations.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dropsync/internal/client/migrations"
	"github.com/dmitrijs2005/dropsync/internal/filex"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database. It only lives as long as the
// single pooled connection, which Open pins.
const MemoryDSN = ":memory:"

// Open opens the database at dsn and runs migrations. A plain file path gets
// its directory created first. The pool is limited to
// one connection so every write is serialized by database/sql.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn != MemoryDSN && !strings.HasPrefix(dsn, "file:") {
		if err := filex.EnsureDirFor(dsn); err != nil {
			return nil, fmt.Errorf("open local db: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure local db: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// RunMigrations applies all pending migrations. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
