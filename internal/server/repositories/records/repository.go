// Package records stores drop baru and drop lama rows for the backend.
// Every query is scoped to the owning officer.
package records

import (
	"context"

	"github.com/dmitrijs2005/dropsync/internal/server/models"
)

type Repository interface {
	// Upsert inserts rec or replaces the row with the same ID. A row owned by
	// someone else is left alone and common.ErrNotFound is returned.
	Upsert(ctx context.Context, table models.Table, rec *models.Record) (*models.Record, error)
	List(ctx context.Context, table models.Table, ownerID string) ([]*models.Record, error)
	Get(ctx context.Context, table models.Table, ownerID, id string) (*models.Record, error)
	Update(ctx context.Context, table models.Table, ownerID, id string, patch models.RecordPatch) (*models.Record, error)
	Delete(ctx context.Context, table models.Table, ownerID, id string) error
}
