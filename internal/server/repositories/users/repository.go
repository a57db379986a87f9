package users

import (
	"context"

	"github.com/dmitrijs2005/dropsync/internal/server/models"
)

type Repository interface {
	// Create stores user and fills its ID. A taken username yields
	// common.ErrUsernameAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
