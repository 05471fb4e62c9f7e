package recurrence

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTemplate matches every *ValidationError via errors.Is.
	ErrInvalidTemplate = errors.New("invalid template")

	ErrUnknownFrequency  = errors.New("unknown frequency")
	ErrUnknownStatus     = errors.New("unknown status")
	ErrTerminalStatus    = errors.New("occurrence is already in a terminal status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError describes a template field that failed validation.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid template: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidTemplate) true for any validation error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidTemplate
}
