// Package store persists dashboard accounts.
package store

import (
	"context"

	"github.com/google/uuid"

	"conexus/internal/account/models"
)

type Store interface {
	// Create fails with sentinel.ErrAlreadyBound when the email is taken.
	Create(ctx context.Context, a *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}
