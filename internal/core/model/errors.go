package model

import (
	"errors"
	"fmt"
)

// ErrExhausted reports that no page or entry exists in the requested direction.
// It drives the END/START transitions and is not a failure.
var ErrExhausted = errors.New("history exhausted")

// ValidationError is returned for a malformed snapshot or change file
type ValidationError struct {
	Source string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Source, e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason
func NewValidationError(source, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Source: source, Reason: fmt.Sprintf(format, args...)}
}

// ReferenceError is returned when a delta names an entity that does not exist
type ReferenceError struct {
	Type      string
	ID        int
	Attribute string
}

func (e *ReferenceError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("unknown entity %s[%d] referenced by attribute %q", e.Type, e.ID, e.Attribute)
	}
	return fmt.Sprintf("unknown entity %s[%d]", e.Type, e.ID)
}

// FetchError wraps a History Service failure for one page
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err leaves the entity state unusable. A FetchError
// is never fatal, even when it wraps a decode failure.
func IsFatal(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return false
	}
	var refErr *ReferenceError
	var valErr *ValidationError
	return errors.As(err, &refErr) || errors.As(err, &valErr)
}
