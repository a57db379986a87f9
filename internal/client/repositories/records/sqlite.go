package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
)

const selectColumns = `id, profile_id, foto, nama, alamat, pinjaman, saldo, angsuran, tabungan, created_at, updated_at, synced`

// SQLiteRepository implements Repository over dbx.DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, kind models.Kind, fields models.Fields) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	if fields.String(models.ColID) == "" {
		return fmt.Errorf("insert into %s: missing %s", table, models.ColID)
	}

	cols := fields.Keys()
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = sqlValue(fields[c])
	}

	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (%s) VALUES (%s)`,
		table, strings.Join(cols, ", "), placeholders(len(cols)))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, kind models.Kind, id string, fields models.Fields) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	fields = fields.Without(models.ColID)
	if err := fields.Validate(); err != nil {
		return err
	}
	if len(fields) == 0 {
		_, err := r.GetByID(ctx, kind, id)
		return err
	}

	cols := fields.Keys()
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, sqlValue(fields[c]))
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, table, strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s[%s]: %w", table, id, err)
	}
	return dbx.RequireAffected(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, kind models.Kind, id string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete %s[%s]: %w", table, id, err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, kind models.Kind, owner string) ([]*models.Record, error) {
	return r.query(ctx, kind, `WHERE profile_id = ? ORDER BY created_at DESC`, owner)
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context, kind models.Kind, owner string) ([]*models.Record, error) {
	return r.query(ctx, kind, `WHERE profile_id = ? AND synced = 0 ORDER BY created_at ASC`, owner)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, kind models.Kind, id string) (*models.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM `+table+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s[%s]: %w", table, id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, kind models.Kind, id string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE `+table+` SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark %s[%s] synced: %w", table, id, err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, kind models.Kind, tail string, args ...any) ([]*models.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM `+table+` `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", table, err)
	}
	defer rows.Close()

	result := make([]*models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec                                     models.Record
		photo, updatedAt                        sql.NullString
		principal, balance, installment, saving sql.NullFloat64
		synced                                  int64
	)
	err := s.Scan(&rec.ID, &rec.OwnerID, &photo, &rec.Name, &rec.Address,
		&principal, &balance, &installment, &saving, &rec.CreatedAt, &updatedAt, &synced)
	if err != nil {
		return nil, err
	}

	if photo.Valid {
		rec.Photo = &photo.String
	}
	rec.Principal = nullFloat(principal)
	rec.Balance = nullFloat(balance)
	rec.Installment = nullFloat(installment)
	rec.Savings = nullFloat(saving)
	rec.UpdatedAt = updatedAt.String
	rec.Synced = synced != 0
	return &rec, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func tableFor(kind models.Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidKind, kind)
	}
	return kind.Table(), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sqlValue(v any) any {
	switch b := v.(type) {
	case bool:
		if b {
			return 1
		}
		return 0
	case *float64:
		if b == nil {
			return nil
		}
		return *b
	case *string:
		if b == nil {
			return nil
		}
		return *b
	}
	return v
}
