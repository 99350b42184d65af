package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes the service layer distinguishes.
// Anything else talking to a backing store is wrapped and treated as
// ErrBackendUnavailable by the HTTP layer.
var (
	// ErrNotFound means a referenced device id has no document.
	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable means a backing store could not be reached.
	// The caller leaves last-known state unchanged; the next tick or
	// user-triggered refresh retries implicitly.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrDuplicate means a device id is already registered.
	ErrDuplicate = errors.New("already exists")
)

// ValidationError reports a user-entered field that failed its constraint.
// The operation is not attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
