// Package models defines the conference event catalog.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "conexus/pkg/domain-errors"
)

// Event is one conference or seminar registrations attach to.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateEventRequest adds an event to the catalog.
type CreateEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

func (r *CreateEventRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *CreateEventRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Name) > 255 {
		return dErrors.New(dErrors.CodeValidation, "name must be 255 characters or less")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.StartsAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "starts_at is required")
	}
	if !r.EndsAt.IsZero() && r.EndsAt.Before(r.StartsAt) {
		return dErrors.New(dErrors.CodeValidation, "ends_at must not be before starts_at")
	}
	return nil
}
