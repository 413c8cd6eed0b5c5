package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected at the write boundary.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when a write would move an event's
	// status backwards or out of DELETED.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable means the forecast provider has nothing for the request.
	// Callers treat it as "leave weather unset", never as a failure.
	ErrUnavailable = errors.New("forecast unavailable")
)

// ValidationError names the offending field. It matches ErrValidation via errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
