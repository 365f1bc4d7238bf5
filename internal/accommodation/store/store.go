// Package store persists places and rooms.
package store

import (
	"context"

	"github.com/google/uuid"

	"conexus/internal/accommodation/models"
)

// Store is the accommodation persistence contract.
type Store interface {
	CreatePlace(ctx context.Context, p *models.Place) error
	ListPlaces(ctx context.Context) ([]*models.Place, error)
	FindPlace(ctx context.Context, id uuid.UUID) (*models.Place, error)

	// DeletePlace removes the place and all its rooms, returning the IDs of
	// the removed rooms so the caller can cascade assignment clears.
	DeletePlace(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)

	CreateRoom(ctx context.Context, r *models.Room) error
	ListRooms(ctx context.Context) ([]*models.Room, error)
	FindRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	DeleteRoom(ctx context.Context, id uuid.UUID) error
}
