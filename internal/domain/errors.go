package domain

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is wrapped by every error that means the caller's
// credentials were rejected, as opposed to a failure while checking them.
var ErrUnauthenticated = errors.New("unauthenticated")

// ValidationError names the input field that was rejected.
// It unwraps to the module-level sentinel describing the failure.
type ValidationError struct {
	Field string
	Err   error
}

// NewValidationError wraps err with the name of the offending field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
