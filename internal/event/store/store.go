// Package store persists the event catalog.
package store

import (
	"context"

	"github.com/google/uuid"

	"conexus/internal/event/models"
)

type Store interface {
	Create(ctx context.Context, e *models.Event) error
	List(ctx context.Context) ([]*models.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
