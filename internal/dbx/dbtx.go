// Package dbx holds the small database/sql helpers shared by the SQLite and
// Postgres repositories: the DBTX handle both *sql.DB and *sql.Tx satisfy,
// a transaction runner and a rows-affected check.
package dbx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/dropsync/internal/common"
)

// DBTX is the subset of database/sql used by repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with the transactional handle and
// commits when fn returns nil. Errors and panics roll back; panics are
// rethrown after the rollback.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if err := records.NewSQLiteRepository(tx).Insert(ctx, kind, f); err != nil {
//	        return err
//	    }
//	    _, err := queue.NewSQLiteRepository(tx).Add(ctx, kind, models.OpInsert, owner, payload)
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// RequireAffected returns common.ErrNotFound when res reports zero affected rows.
func RequireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
