// Package models defines places (dorms, hotels) and their rooms.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "conexus/pkg/domain-errors"
)

// PlaceType distinguishes housing categories for the assignment UI.
type PlaceType string

const (
	PlaceDorm  PlaceType = "dorm"
	PlaceHotel PlaceType = "hotel"
)

func (t PlaceType) IsValid() bool {
	return t == PlaceDorm || t == PlaceHotel
}

// Place groups rooms under one physical location.
type Place struct {
	ID        uuid.UUID
	Name      string
	Type      PlaceType
	CreatedAt time.Time
}

// Room has a fixed bed count. Occupancy is always derived from the
// registration ledger, never stored here; a stored counter would drift on
// out-of-band status changes.
type Room struct {
	ID        uuid.UUID
	PlaceID   uuid.UUID
	Name      string
	Beds      int
	CreatedAt time.Time
}

// CreatePlaceRequest registers a new housing location.
type CreatePlaceRequest struct {
	Name string    `json:"name"`
	Type PlaceType `json:"type"`
}

func (r *CreatePlaceRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Type = PlaceType(strings.TrimSpace(strings.ToLower(string(r.Type))))
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *CreatePlaceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Name) > 255 {
		return dErrors.New(dErrors.CodeValidation, "name must be 255 characters or less")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !r.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "type must be 'dorm' or 'hotel'")
	}
	return nil
}

// CreateRoomRequest adds a room with a fixed bed count to a place.
type CreateRoomRequest struct {
	PlaceID uuid.UUID `json:"place_id"`
	Name    string    `json:"name"`
	Beds    int       `json:"beds"`
}

func (r *CreateRoomRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
}

func (r *CreateRoomRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Name) > 64 {
		return dErrors.New(dErrors.CodeValidation, "name must be 64 characters or less")
	}
	if r.PlaceID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "place_id is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Beds < 1 {
		return dErrors.New(dErrors.CodeValidation, "beds must be at least 1")
	}
	return nil
}
