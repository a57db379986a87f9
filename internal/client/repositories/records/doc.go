// Package records is the local store for loan records, one SQLite table per
// models.Kind.
//
// Writes take a models.Fields column set; columns missing from the set are
// not written. Column names are checked against models.Columns before any
// SQL is built, and table names come only from models.Kind.
//
// The repository works over dbx.DBTX, so the hybrid service can combine a
// record write and a queue append in one transaction:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if err := records.NewSQLiteRepository(tx).Insert(ctx, kind, f); err != nil {
//	        return err
//	    }
//	    _, err := queue.NewSQLiteRepository(tx).Add(ctx, kind, models.OpInsert, owner, f)
//	    return err
//	})
package records
