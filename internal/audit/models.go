// Package audit captures lifecycle events from domain logic. Events are
// transport-agnostic so stores and sinks can fan out.
package audit

import (
	"context"
	"time"
)

// Action names a lifecycle event.
type Action string

const (
	ActionRegistrationSubmitted Action = "registration_submitted"
	ActionStatusChanged         Action = "registration_status_changed"
	ActionRegistrationDeleted   Action = "registration_deleted"
	ActionCardBound             Action = "card_bound"
	ActionCardUnbound           Action = "card_unbound"
	ActionRoomAssigned          Action = "room_assigned"
	ActionRoomReleased          Action = "room_released"
	ActionScanRecorded          Action = "scan_recorded"
	ActionBatchCompleted        Action = "dispatch_batch_completed"
)

// Event is one audit record.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`

	// Subject identifies the affected record (registration, room, run).
	Subject string `json:"subject"`

	// Actor is the account email that triggered the action, when known.
	Actor string `json:"actor,omitempty"`

	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Publisher emits audit events. Implementations must be safe for concurrent
// use; emission failures are the caller's to log, never to fail the
// business operation on.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context) ([]Event, error)
}
