// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound = errors.New("entity not found")

	// Validation errors
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// External service errors
	ErrExternalService = errors.New("external service error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "session", "progress", "storage"
	Op      string // Operation that failed, e.g., "Start", "Save"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
//
// A wrapped error matches its sentinel (same Domain, Op and Kind), so
// WrapError(ErrPersistenceFailure...) still satisfies errors.Is(err, ErrPersistenceFailure).
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		if e == t {
			return true
		}
		return t.Err == nil && e.Domain == t.Domain && e.Op == t.Op && e.Kind == t.Kind
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps err with the context of a sentinel DomainError.
// The result matches the sentinel with errors.Is().
func (e *DomainError) Wrap(err error) *DomainError {
	return WrapError(e.Domain, e.Op, e.Kind, e.Message, err)
}

// Session domain errors
var (
	ErrAlreadyActive   = NewDomainError("session", "Start", ErrInvalidState, "a session is already active")
	ErrNoActiveSession = NewDomainError("session", "End", ErrInvalidState, "no active session")
)

// Progress domain errors
var (
	ErrPersistenceFailure = NewDomainError("progress", "Persist", ErrExternalService, "profile storage failed")
	ErrCorruptState       = NewDomainError("progress", "Load", ErrInvalidFormat, "stored profile failed validation")
	ErrInvalidSettings    = NewDomainError("progress", "UpdateSettings", ErrValueOutOfRange, "invalid settings")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValueOutOfRange) || errors.Is(err, ErrInvalidFormat)
}

// IsRetryable reports whether repeating the operation may succeed.
// Only storage I/O failures qualify; encoding and validation errors do not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrExternalService)
}
