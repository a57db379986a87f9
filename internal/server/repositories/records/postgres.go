package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
	"github.com/shopspring/decimal"
)

const returnColumns = `id, profile_id, foto, nama, alamat, pinjaman, saldo, angsuran, tabungan, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type column struct {
	name  string
	value any
}

// writable drops the generated columns of derived tables and pinjaman,
// which only derived tables keep.
func writable(table models.Table, cols []column) []column {
	out := cols[:0:0]
	for _, c := range cols {
		switch c.name {
		case "saldo", "angsuran", "tabungan":
			if table.Derived() {
				continue
			}
		case "pinjaman":
			if !table.Derived() {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func (r *PostgresRepository) Upsert(ctx context.Context, table models.Table, rec *models.Record) (*models.Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	cols := writable(table, []column{
		{"id", rec.ID},
		{"profile_id", rec.OwnerID},
		{"foto", rec.Photo},
		{"nama", rec.Name},
		{"alamat", rec.Address},
		{"pinjaman", rec.Principal},
		{"saldo", rec.Balance},
		{"angsuran", rec.Installment},
		{"tabungan", rec.Savings},
		{"created_at", rec.CreatedAt},
		{"updated_at", rec.UpdatedAt},
	})

	names := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	var sets []string
	for i, c := range cols {
		names[i] = c.name
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = c.value
		switch c.name {
		case "id", "profile_id", "created_at":
		default:
			sets = append(sets, c.name+" = EXCLUDED."+c.name)
		}
	}

	query := fmt.Sprintf(
		`INSERT INTO %[1]s (%[2]s) VALUES (%[3]s)
		 ON CONFLICT (id) DO UPDATE SET %[4]s
		 WHERE %[1]s.profile_id = EXCLUDED.profile_id
		 RETURNING %[5]s`,
		table, strings.Join(names, ", "), strings.Join(params, ", "), strings.Join(sets, ", "), returnColumns)

	return r.one(ctx, table, query, args...)
}

func (r *PostgresRepository) List(ctx context.Context, table models.Table, ownerID string) ([]*models.Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE profile_id = $1 ORDER BY created_at DESC`, returnColumns, table)

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, table models.Table, ownerID, id string) (*models.Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND profile_id = $2`, returnColumns, table)
	return r.one(ctx, table, query, id, ownerID)
}

func (r *PostgresRepository) Update(ctx context.Context, table models.Table, ownerID, id string, patch models.RecordPatch) (*models.Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	var cols []column
	if patch.Photo != nil {
		cols = append(cols, column{"foto", *patch.Photo})
	}
	if patch.Name != nil {
		cols = append(cols, column{"nama", *patch.Name})
	}
	if patch.Address != nil {
		cols = append(cols, column{"alamat", *patch.Address})
	}
	if patch.Principal != nil {
		cols = append(cols, column{"pinjaman", *patch.Principal})
	}
	if patch.Balance != nil {
		cols = append(cols, column{"saldo", *patch.Balance})
	}
	if patch.Installment != nil {
		cols = append(cols, column{"angsuran", *patch.Installment})
	}
	if patch.Savings != nil {
		cols = append(cols, column{"tabungan", *patch.Savings})
	}
	cols = writable(table, cols)
	if len(cols) == 0 {
		return r.Get(ctx, table, ownerID, id)
	}
	if patch.UpdatedAt != nil {
		cols = append(cols, column{"updated_at", *patch.UpdatedAt})
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+2)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c.name, i+1)
		args = append(args, c.value)
	}
	args = append(args, id, ownerID)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d AND profile_id = $%d RETURNING %s`,
		table, strings.Join(sets, ", "), len(cols)+1, len(cols)+2, returnColumns)

	return r.one(ctx, table, query, args...)
}

func (r *PostgresRepository) Delete(ctx context.Context, table models.Table, ownerID, id string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND profile_id = $2`, table)
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireAffected(res)
}

func (r *PostgresRepository) one(ctx context.Context, table models.Table, query string, args ...any) (*models.Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// checkTable keeps unknown names out of the interpolated SQL.
func checkTable(table models.Table) error {
	_, err := models.ParseTable(string(table))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec                                      models.Record
		photo                                    sql.NullString
		principal, balance, installment, savings decimal.NullDecimal
	)
	err := s.Scan(&rec.ID, &rec.OwnerID, &photo, &rec.Name, &rec.Address,
		&principal, &balance, &installment, &savings, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if photo.Valid {
		rec.Photo = &photo.String
	}
	rec.Principal = toFloat(principal)
	rec.Balance = toFloat(balance)
	rec.Installment = toFloat(installment)
	rec.Savings = toFloat(savings)
	return &rec, nil
}

func toFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
