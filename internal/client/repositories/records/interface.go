package records

import (
	"context"

	"github.com/dmitrijs2005/dropsync/internal/client/models"
)

// Repository is the local record store.
type Repository interface {
	// Insert writes a row, replacing any row with the same id.
	Insert(ctx context.Context, kind models.Kind, fields models.Fields) error

	// Update sets the given columns on the row with id. It returns
	// common.ErrNotFound when no row matched.
	Update(ctx context.Context, kind models.Kind, id string, fields models.Fields) error

	// Delete removes the row with id. Deleting a missing row is not an error.
	Delete(ctx context.Context, kind models.Kind, id string) error

	// GetAll returns owner's rows of kind, newest first.
	GetAll(ctx context.Context, kind models.Kind, owner string) ([]*models.Record, error)

	// GetByID returns common.ErrNotFound when the row does not exist. It
	// does not check the owner.
	GetByID(ctx context.Context, kind models.Kind, id string) (*models.Record, error)

	// GetUnsynced returns owner's rows that still have local changes to push.
	GetUnsynced(ctx context.Context, kind models.Kind, owner string) ([]*models.Record, error)

	// MarkSynced clears the pending flag on the row with id.
	MarkSynced(ctx context.Context, kind models.Kind, id string) error
}
