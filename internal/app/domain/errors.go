// Package domain holds the entity model and the error taxonomy shared by
// services, stores and the HTTP layer.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a reference to an entity that does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition reports a state machine rule violation, e.g. an
// attempt to resolve an already-resolved challenge request.
var ErrInvalidTransition = errors.New("invalid transition")

// ValidationError reports malformed input. It is client-correctable and is
// surfaced verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
