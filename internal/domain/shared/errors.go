// Package shared contains common domain types, errors, and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrStateTransition = errors.New("invalid state transition")

	// Persistence errors
	ErrPersistence   = errors.New("persistence failure")
	ErrSerialization = errors.New("serialization failure")

	// Notification errors
	ErrStateNotify = errors.New("subscriber notification failure")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "task", "grade", "session"
	Op      string // Operation that failed, e.g., "Add", "Edit"
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
func (e *DomainError) Is(target error) bool {
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

// NotFound builds the not-found error for an entity id.
func NotFound(domain, op, id string) *DomainError {
	return NewDomainError(domain, op, ErrNotFound, fmt.Sprintf("%s %q not found", domain, id))
}

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// ValidationError carries every human-readable reason an input was rejected.
// No state change happens when it is returned.
type ValidationError struct {
	Domain string
	Op     string
	Errors []string
}

// NewValidationError creates a ValidationError with a copy of reasons.
func NewValidationError(domain, op string, reasons []string) *ValidationError {
	copied := make([]string, len(reasons))
	copy(copied, reasons)
	return &ValidationError{Domain: domain, Op: op, Errors: copied}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s: validation failed: %s", e.Domain, e.Op, strings.Join(e.Errors, "; "))
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ══════════════════════════════════════════════════════════════════════════════
// PERSISTENCE
// ══════════════════════════════════════════════════════════════════════════════

// PersistenceError reports a failed durable write. The in-memory state it
// belongs to has already changed and is not rolled back.
type PersistenceError struct {
	Key string
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store.%s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the backend error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// StateNotifyError reports a subscriber that failed while being notified.
type StateNotifyError struct {
	Key   string
	Cause any
}

// Error implements the error interface.
func (e *StateNotifyError) Error() string {
	return fmt.Sprintf("notify %q: subscriber failed: %v", e.Key, e.Cause)
}

// Is matches ErrStateNotify.
func (e *StateNotifyError) Is(target error) bool {
	return target == ErrStateNotify
}

// Unwrap exposes the cause when the subscriber returned an error.
func (e *StateNotifyError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// ValidationReasons extracts the reason list from a validation error chain.
func ValidationReasons(err error) []string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Errors
	}
	return nil
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrStateTransition)
}

// IsPersistence checks if the error is a durable write failure.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
