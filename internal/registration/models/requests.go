package models

import (
	"strings"

	"github.com/google/uuid"

	dErrors "conexus/pkg/domain-errors"
)

// SubmitRequest creates a new registration in pending state.
type SubmitRequest struct {
	EventID    uuid.UUID   `json:"event_id"`
	OwnerName  string      `json:"owner_name"`
	OwnerEmail string      `json:"owner_email"`
	University string      `json:"university"`
	Companions []Companion `json:"companions"`
}

func (r *SubmitRequest) Normalize() {
	if r == nil {
		return
	}
	r.OwnerName = strings.TrimSpace(r.OwnerName)
	r.OwnerEmail = strings.TrimSpace(strings.ToLower(r.OwnerEmail))
	r.University = strings.TrimSpace(r.University)
	for i := range r.Companions {
		r.Companions[i].Name = strings.TrimSpace(r.Companions[i].Name)
		r.Companions[i].Email = strings.TrimSpace(strings.ToLower(r.Companions[i].Email))
	}
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.OwnerName) > 255 {
		return dErrors.New(dErrors.CodeValidation, "owner_name must be 255 characters or less")
	}
	if len(r.Companions) > 10 {
		return dErrors.New(dErrors.CodeValidation, "at most 10 companions are allowed")
	}

	if r.EventID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "event_id is required")
	}
	if r.OwnerName == "" {
		return dErrors.New(dErrors.CodeValidation, "owner_name is required")
	}
	if r.OwnerEmail == "" {
		return dErrors.New(dErrors.CodeValidation, "owner_email is required")
	}
	if !strings.Contains(r.OwnerEmail, "@") {
		return dErrors.New(dErrors.CodeValidation, "owner_email must be an email address")
	}

	for _, c := range r.Companions {
		if c.Name == "" {
			return dErrors.New(dErrors.CodeValidation, "companion name is required")
		}
	}

	return nil
}

// UpdateStatusRequest drives the approval state machine. RoomID is honored
// only when the target status is approved.
type UpdateStatusRequest struct {
	Status Status     `json:"status"`
	RoomID *uuid.UUID `json:"room_id,omitempty"`
	Note   string     `json:"note,omitempty"`
}

func (r *UpdateStatusRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = Status(strings.TrimSpace(strings.ToLower(string(r.Status))))
	r.Note = strings.TrimSpace(r.Note)
}

func (r *UpdateStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Note) > 500 {
		return dErrors.New(dErrors.CodeValidation, "note must be 500 characters or less")
	}
	if r.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	if !r.Status.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "status must be one of %s, %s, %s",
			StatusPending, StatusApproved, StatusRejected)
	}
	if r.RoomID != nil && r.Status != StatusApproved {
		return dErrors.New(dErrors.CodeValidation, "room_id is only accepted when approving")
	}
	return nil
}

// BindCardRequest attaches an identity card to a registration.
type BindCardRequest struct {
	CardValue string `json:"card_value"`
}

func (r *BindCardRequest) Normalize() {
	if r == nil {
		return
	}
	r.CardValue = strings.TrimSpace(r.CardValue)
}

func (r *BindCardRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.CardValue) > 128 {
		return dErrors.New(dErrors.CodeValidation, "card_value must be 128 characters or less")
	}
	if r.CardValue == "" {
		return dErrors.New(dErrors.CodeValidation, "card_value is required")
	}
	return nil
}
