// Package queue persists mutations made while the backend was unreachable so
// they can be replayed later in the order they were made.
package queue

import (
	"context"

	"github.com/dmitrijs2005/dropsync/internal/client/models"
)

// Repository is the pending-operation queue. Every entry belongs to the
// user who made the change. Entries come back in sequence order; created_at
// is informational and never used for ordering.
type Repository interface {
	Add(ctx context.Context, kind models.Kind, op models.OpType, owner string, payload models.Fields) (int64, error)
	// GetPending returns owner's entries in the order they were added.
	GetPending(ctx context.Context, owner string) ([]models.PendingOperation, error)
	Remove(ctx context.Context, seq int64) error
	// Count covers every owner on the device.
	Count(ctx context.Context) (int, error)
	CountByKind(ctx context.Context, owner string) (map[models.Kind]int, error)
	CountForRecord(ctx context.Context, kind models.Kind, id string) (int, error)
}
