// Package dErrors provides coded domain errors. Services translate
// infrastructure sentinels (pkg/platform/sentinel) into these so transport
// layers can map them to HTTP statuses without inspecting error strings.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and retry decisions.
type Code string

const (
	// CodeValidation marks a request rejected before touching storage
	// (missing or malformed field).
	CodeValidation Code = "validation_error"

	// CodeBadRequest marks a structurally broken request (unreadable body,
	// bad identifier syntax).
	CodeBadRequest Code = "bad_request"

	// CodeConflict marks a uniqueness violation, e.g. an identity card
	// already bound to another registration.
	CodeConflict Code = "conflict"

	// CodeCapacityExceeded marks a room with no free beds. No partial
	// commit has happened when this is returned.
	CodeCapacityExceeded Code = "capacity_exceeded"

	// CodeNotFound marks an unknown registration, room, place, or portal.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized marks a failed credential or token check.
	CodeUnauthorized Code = "unauthorized"

	// CodeInvariantViolation marks a state transition the guard table
	// forbids, e.g. setting a registration to its current status.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal marks storage or downstream failures surfaced to the
	// caller unmodified in semantics but with details kept server-side.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			break
		}
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability:
// dErrors.Is(err, dErrors.CodeConflict).
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code on err, or CodeInternal when err carries
// no domain code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost message on err, or empty when err carries
// no domain code.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
