package users

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/server/models"
)

// Repository persists accounts. Create reports common.ErrAlreadyExists for
// a taken username; lookups report common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}
