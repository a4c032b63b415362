package users

import (
	"context"

	"github.com/dmitrijs2005/carvault/internal/server/models"
)

// Repository persists identity provider accounts. Create fails with
// common.ErrorAlreadyExists for a taken user name and GetUserByLogin with
// common.ErrorNotFound for an unknown one.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
