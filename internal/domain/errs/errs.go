// Package errs defines the error taxonomy shared by the workflow services.
// Callers branch on these values; anything else is an internal fault and is
// surfaced untranslated.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity does not exist. Repositories
	// return it for the no-row case instead of a raw driver error.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a create collided with an existing identity.
	ErrConflict = errors.New("already exists")

	// ErrAccessDenied is the single value returned for every authorization
	// failure. It deliberately carries no detail about which rule fired.
	ErrAccessDenied = errors.New("access denied")
)

// ValidationError reports malformed or out-of-range input on a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validation builds a field-level ValidationError.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransitionError reports a status or confirmation rule violation.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// Transition builds a TransitionError.
func Transition(from, to string) *TransitionError {
	return &TransitionError{From: from, To: to}
}

// IsTransition reports whether err is a TransitionError.
func IsTransition(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}
