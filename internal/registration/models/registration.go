// Package models defines the registration record and its status machine.
package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "conexus/pkg/domain-errors"
)

// Status is the approval state of a registration.
type Status string

const (
	StatusPending  Status = "pending_approval"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// allowedTransitions is the explicit guard table. The upstream system allowed
// free toggling between all three states (including Rejected back to
// Approved), inferring legality from UI button visibility; the table makes
// that contract explicit. Self-transitions are never listed: repeating the
// current status is an error, not a silent success.
var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusPending, StatusRejected},
	StatusRejected: {StatusPending, StatusApproved},
}

// Companion is an additional attendee under the owner's registration.
type Companion struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// Registration is one person's (plus optional companions) claim on one event.
type Registration struct {
	ID         uuid.UUID
	EventID    uuid.UUID
	OwnerName  string
	OwnerEmail string
	University string
	Companions []Companion
	Status     Status

	// RoomID is set only through the capacity-guarded assignment path. A
	// later status flip does not auto-clear it unless the release-on-revoke
	// flag is enabled.
	RoomID *uuid.UUID

	// BoundCard is the identity card value attached for contactless
	// check-in. Empty means unbound. Non-empty values are unique across
	// registrations.
	BoundCard string

	// AdminNote records the operator's reason when an approved
	// registration is revoked.
	AdminNote string

	CreatedAt time.Time
}

// ParticipantsCount is the owner plus companions.
func (r *Registration) ParticipantsCount() int {
	return 1 + len(r.Companions)
}

// CanTransition checks the guard table for a status change. A no-op
// transition is rejected rather than silently accepted.
func (r *Registration) CanTransition(to Status) error {
	if !to.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown status %q", to)
	}
	if r.Status == to {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "registration is already %s", to)
	}
	for _, allowed := range allowedTransitions[r.Status] {
		if allowed == to {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot transition from %s to %s", r.Status, to)
}

// IsRevoke reports whether moving to the given status constitutes a revoke,
// which requires an operator note.
func (r *Registration) IsRevoke(to Status) bool {
	return r.Status == StatusApproved && to == StatusRejected
}
