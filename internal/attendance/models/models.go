// Package models defines portals, attendance records, and scan outcomes.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "conexus/pkg/domain-errors"
)

// UnknownPortalLabel is recorded when a scan arrives from a portal the
// catalog does not know; the scan itself is still honored.
const UnknownPortalLabel = "Unknown"

// Portal is a physical scan station, usually parked at a room entrance.
type Portal struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	RoomID    *uuid.UUID `json:"room_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Record is one check-in event. Append-only; dedup suppresses writes inside
// the sliding window instead of mutating prior records.
type Record struct {
	ID             uuid.UUID `json:"id"`
	RegistrationID uuid.UUID `json:"registration_id"`
	PortalLabel    string    `json:"portal_label"`
	DisplayName    string    `json:"display_name"`

	// Device is the scanning client's browser and OS summary, kept for
	// operator troubleshooting of misbehaving stations.
	Device string `json:"device,omitempty"`

	ScannedAt time.Time `json:"scanned_at"`
}

// ScanOutcome is the closed result set of a scan attempt.
type ScanOutcome string

const (
	OutcomeSuccess       ScanOutcome = "success"
	OutcomeDuplicateScan ScanOutcome = "duplicate_scan"
	OutcomeNotApproved   ScanOutcome = "not_approved"
	OutcomeNotFound      ScanOutcome = "not_found"
)

// ScanResult is what the scanning front-end renders: a status tag, never an
// error page.
type ScanResult struct {
	Outcome     ScanOutcome `json:"outcome"`
	DisplayName string      `json:"display_name,omitempty"`
}

// ScanRequest carries a raw scan code: a card value or an owner email. The
// portal id is advisory; an unknown portal falls back to the Unknown label.
type ScanRequest struct {
	PortalID string `json:"portal_id"`
	Code     string `json:"code"`
}

func (r *ScanRequest) Normalize() {
	if r == nil {
		return
	}
	r.PortalID = strings.TrimSpace(r.PortalID)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *ScanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Code) > 255 {
		return dErrors.New(dErrors.CodeValidation, "code must be 255 characters or less")
	}
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	return nil
}

// CreatePortalRequest registers a new scan station.
type CreatePortalRequest struct {
	Name   string     `json:"name"`
	RoomID *uuid.UUID `json:"room_id,omitempty"`
}

func (r *CreatePortalRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *CreatePortalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Name) > 255 {
		return dErrors.New(dErrors.CodeValidation, "name must be 255 characters or less")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}
