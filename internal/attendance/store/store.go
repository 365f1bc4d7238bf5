// Package store persists portals and the append-only attendance log.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"conexus/internal/attendance/models"
)

// PortalStore is the scan-station catalog.
type PortalStore interface {
	CreatePortal(ctx context.Context, p *models.Portal) error
	ListPortals(ctx context.Context) ([]*models.Portal, error)
	FindPortal(ctx context.Context, id uuid.UUID) (*models.Portal, error)
	DeletePortal(ctx context.Context, id uuid.UUID) error
}

// LogStore is the attendance log.
type LogStore interface {
	// AppendIfQuiet writes the record unless another record for the same
	// registration exists with a timestamp inside the sliding window
	// before rec.ScannedAt. Check and write are one atomic operation; it
	// reports false when the write was suppressed as a duplicate.
	AppendIfQuiet(ctx context.Context, rec *models.Record, window time.Duration) (bool, error)

	// LastForRegistration returns the most recent record, or nil.
	LastForRegistration(ctx context.Context, registrationID uuid.UUID) (*models.Record, error)

	// List returns records most recent first.
	List(ctx context.Context) ([]*models.Record, error)
}
