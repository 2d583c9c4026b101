package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity is required to exist and does not.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would duplicate an entity that already exists.
	ErrConflict = errors.New("already exists")

	// ErrUnauthorized is returned when the caller identity is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller is authenticated but not allowed to act.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports input that is well-formed JSON but semantically invalid.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
