package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
	"github.com/dmitrijs2005/dropsync/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// RecordService stores records on behalf of an authenticated officer.
// The owner always comes from the access token, never from the payload.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager) *RecordService {
	return &RecordService{db: db, repomanager: m, now: time.Now}
}

// Create stores rec, replacing an earlier copy with the same ID. Clients
// send their own IDs, which makes a replayed create harmless.
func (s *RecordService) Create(ctx context.Context, ownerID string, table models.Table, rec *models.Record) (*models.Record, error) {
	if err := validateRecord(table, rec); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.OwnerID = ownerID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	return s.repomanager.Records(s.db).Upsert(ctx, table, rec)
}

func (s *RecordService) List(ctx context.Context, ownerID string, table models.Table) ([]*models.Record, error) {
	return s.repomanager.Records(s.db).List(ctx, table, ownerID)
}

func (s *RecordService) Get(ctx context.Context, ownerID string, table models.Table, id string) (*models.Record, error) {
	return s.repomanager.Records(s.db).Get(ctx, table, ownerID, id)
}

func (s *RecordService) Update(ctx context.Context, ownerID string, table models.Table, id string, patch models.RecordPatch) (*models.Record, error) {
	if err := validatePatch(table, patch); err != nil {
		return nil, err
	}
	if patch.UpdatedAt == nil {
		now := s.now().UTC()
		patch.UpdatedAt = &now
	}
	return s.repomanager.Records(s.db).Update(ctx, table, ownerID, id, patch)
}

func (s *RecordService) Delete(ctx context.Context, ownerID string, table models.Table, id string) error {
	return s.repomanager.Records(s.db).Delete(ctx, table, ownerID, id)
}

func validateRecord(table models.Table, rec *models.Record) error {
	if strings.TrimSpace(rec.Name) == "" {
		return fmt.Errorf("%w: nama is required", common.ErrValidation)
	}
	if strings.TrimSpace(rec.Address) == "" {
		return fmt.Errorf("%w: alamat is required", common.ErrValidation)
	}
	if table.Derived() && rec.Principal == nil {
		return fmt.Errorf("%w: pinjaman is required", common.ErrValidation)
	}
	if !table.Derived() && rec.Principal != nil {
		return fmt.Errorf("%w: pinjaman is not kept for %s", common.ErrValidation, table)
	}
	return nonNegative(map[string]*float64{
		"pinjaman": rec.Principal, "saldo": rec.Balance, "angsuran": rec.Installment, "tabungan": rec.Savings,
	})
}

func validatePatch(table models.Table, p models.RecordPatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: nama is required", common.ErrValidation)
	}
	if p.Address != nil && strings.TrimSpace(*p.Address) == "" {
		return fmt.Errorf("%w: alamat is required", common.ErrValidation)
	}
	if !table.Derived() && p.Principal != nil {
		return fmt.Errorf("%w: pinjaman is not kept for %s", common.ErrValidation, table)
	}
	return nonNegative(map[string]*float64{
		"pinjaman": p.Principal, "saldo": p.Balance, "angsuran": p.Installment, "tabungan": p.Savings,
	})
}

func nonNegative(figures map[string]*float64) error {
	for name, v := range figures {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must not be negative", common.ErrValidation, name)
		}
	}
	return nil
}
