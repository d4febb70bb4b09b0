package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the sentinel behind every ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
)

// ValidationError describes input rejected before any state mutation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
