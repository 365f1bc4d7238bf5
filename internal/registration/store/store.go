// Package store persists registration records. Implementations must keep
// validate-then-mutate sequences atomic per record: the in-memory store holds
// its mutex across both steps, the PostgreSQL store uses row locks or single
// conditional statements.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"conexus/internal/registration/models"
	"conexus/pkg/platform/sentinel"
)

// Store is the registration persistence contract used by the ledger service.
type Store interface {
	Create(ctx context.Context, r *models.Registration) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	FindByCard(ctx context.Context, card string) (*models.Registration, error)
	FindByOwnerEmail(ctx context.Context, email string) (*models.Registration, error)
	List(ctx context.Context) ([]*models.Registration, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Registration, error)

	// Execute runs validate then mutate for one registration inside a
	// single critical section (mutex or FOR UPDATE), returning the updated
	// record. Validation errors abort without mutating.
	Execute(ctx context.Context, id uuid.UUID,
		validate func(*models.Registration) error,
		mutate func(*models.Registration)) (*models.Registration, error)

	// ExecuteWithCapacity is Execute plus a room capacity guard evaluated
	// in the same critical section: the mutation is applied only if the
	// room's derived occupancy (approved registrations assigned to it,
	// excluding this one) is below beds. Returns sentinel.ErrCapacityFull
	// otherwise.
	ExecuteWithCapacity(ctx context.Context, id uuid.UUID, roomID uuid.UUID, beds int,
		validate func(*models.Registration) error,
		mutate func(*models.Registration)) (*models.Registration, error)

	// BindCard attaches card to the registration iff no other registration
	// holds it. Check and write form one atomic compare-and-set; on
	// conflict a *CardConflictError identifies the holder.
	BindCard(ctx context.Context, id uuid.UUID, card string) (*models.Registration, error)

	// UnbindCard clears the binding; no-op if none.
	UnbindCard(ctx context.Context, id uuid.UUID) error

	// Delete removes the record. Room seats and card bindings are fields of
	// the record, so derived occupancy and card uniqueness recover
	// automatically.
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByEvent(ctx context.Context, eventID uuid.UUID) (int, error)

	// Occupancy derives the seat count for a room from approved, assigned
	// registrations. Never cached; recomputed at decision time.
	Occupancy(ctx context.Context, roomID uuid.UUID) (int, error)

	// ReleaseRoom clears the room assignment; no-op if unassigned.
	ReleaseRoom(ctx context.Context, id uuid.UUID) error

	// ClearRoomAssignments nulls the assignment for every registration
	// referencing one of the given rooms. Status is left untouched.
	ClearRoomAssignments(ctx context.Context, roomIDs []uuid.UUID) error
}

// CardConflictError reports a card already active on another registration.
type CardConflictError struct {
	Card   string
	HeldBy uuid.UUID
}

func (e *CardConflictError) Error() string {
	return fmt.Sprintf("card %s already bound to registration %s", e.Card, e.HeldBy)
}

func (e *CardConflictError) Unwrap() error { return sentinel.ErrAlreadyBound }
