package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// WithClock replaces the clock used to stamp new entries.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) Add(ctx context.Context, kind models.Kind, op models.OpType, owner string, payload models.Fields) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", common.ErrInvalidKind, kind)
	}
	if _, err := models.ParseOpType(string(op)); err != nil {
		return 0, err
	}
	id := payload.String(models.ColID)
	if id == "" {
		return 0, fmt.Errorf("queue %s on %s: payload without %s", op, kind.Table(), models.ColID)
	}
	if owner == "" {
		return 0, fmt.Errorf("queue %s on %s: %w", op, kind.Table(), common.ErrUnauthorized)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode queue payload: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (table_name, operation, data, record_id, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, kind.Table(), string(op), string(data), id, owner, common.FormatTimestamp(r.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue %s: %w", op, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue sequence: %w", err)
	}
	return seq, nil
}

func (r *SQLiteRepository) GetPending(ctx context.Context, owner string) ([]models.PendingOperation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, table_name, operation, data, owner_id, created_at
		FROM sync_queue
		WHERE owner_id = ?
		ORDER BY id ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending operations: %w", err)
	}
	defer rows.Close()

	result := make([]models.PendingOperation, 0)
	for rows.Next() {
		var (
			op                  models.PendingOperation
			table, opName, data string
		)
		if err := rows.Scan(&op.Seq, &table, &opName, &data, &op.OwnerID, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending operation: %w", err)
		}
		if op.Kind, err = models.KindFromTable(table); err != nil {
			return nil, fmt.Errorf("pending operation %d: %w", op.Seq, err)
		}
		if op.Op, err = models.ParseOpType(opName); err != nil {
			return nil, fmt.Errorf("pending operation %d: %w", op.Seq, err)
		}
		if err := json.Unmarshal([]byte(data), &op.Payload); err != nil {
			return nil, fmt.Errorf("pending operation %d: decode payload: %w", op.Seq, err)
		}
		result = append(result, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, seq int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, seq); err != nil {
		return fmt.Errorf("failed to remove pending operation %d: %w", seq, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending operations: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountByKind(ctx context.Context, owner string) (map[models.Kind]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT table_name, COUNT(*) FROM sync_queue WHERE owner_id = ? GROUP BY table_name`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending operations: %w", err)
	}
	defer rows.Close()

	result := make(map[models.Kind]int, len(models.Kinds))
	for _, k := range models.Kinds {
		result[k] = 0
	}
	for rows.Next() {
		var table string
		var n int
		if err := rows.Scan(&table, &n); err != nil {
			return nil, err
		}
		kind, err := models.KindFromTable(table)
		if err != nil {
			return nil, err
		}
		result[kind] = n
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) CountForRecord(ctx context.Context, kind models.Kind, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE table_name = ? AND record_id = ?`, kind.Table(), id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending operations for %s: %w", id, err)
	}
	return n, nil
}
