package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced node does not exist
var ErrNotFound = errors.New("not found")

// NodeNotFound wraps ErrNotFound with the missing id
func NodeNotFound(id int64) error {
	return fmt.Errorf("node %d: %w", id, ErrNotFound)
}

// ValidationError reports malformed or out-of-constraint input.
// It is raised before any store access.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
