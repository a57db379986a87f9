// Package refreshtokens declares the backend repository for refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/server/models"
)

// Repository issues, looks up and revokes refresh tokens.
type Repository interface {
	// Create stores token for userID, valid until expiresAt.
	Create(ctx context.Context, userID, token string, expiresAt time.Time) error

	// Find returns common.ErrNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete revokes token. Deleting an absent token returns common.ErrNotFound
	// so a concurrent rotation is detected.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes tokens that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
