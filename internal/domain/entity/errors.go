package entity

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a named source has no health record.
var ErrNotFound = errors.New("no record for source")

// ValidationError reports the first invalid field of a feed definition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
