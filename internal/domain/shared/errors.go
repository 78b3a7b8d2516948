// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// Storage errors, raised by repositories only. Domain functions are pure
	// and never produce these.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "quest", "calendar"
	Op      string // Operation that failed, e.g., "Generate", "ApplyXP"
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

// Progression domain errors
var (
	ErrProgressNotFound = NewDomainError("progression", "Find", ErrNotFound, "user progress not found")
	ErrNegativeDuration = NewDomainError("progression", "Validate", ErrNegativeValue, "session duration cannot be negative")
	ErrInvalidBlock     = NewDomainError("progression", "Validate", ErrValueOutOfRange, "block minutes must be positive")
	ErrInvalidLevel     = NewDomainError("progression", "Validate", ErrValueOutOfRange, "level must be at least 1")
)

// Session domain errors
var (
	ErrSessionNotFound     = NewDomainError("session", "Find", ErrNotFound, "study session not found")
	ErrSessionFinalized    = NewDomainError("session", "End", ErrInvalidState, "study session already finalized")
	ErrNoActiveSession     = NewDomainError("session", "End", ErrNotFound, "no active study session")
	ErrSessionAlreadyEnded = NewDomainError("session", "End", ErrAlreadyProcessed, "study session already ended")
)

// Quest domain errors
var (
	ErrQuestSetNotFound = NewDomainError("quest", "Find", ErrNotFound, "weekly quest set not found")
	ErrInvalidWeekID    = NewDomainError("quest", "Validate", ErrInvalidFormat, "week id must match YYYY-Www")
	ErrQuestSetExists   = NewDomainError("quest", "Create", ErrAlreadyExists, "weekly quest set already exists")
)

// Calendar domain errors
var (
	ErrEventNotFound  = NewDomainError("calendar", "Find", ErrNotFound, "calendar event not found")
	ErrInvalidWindow  = NewDomainError("calendar", "Validate", ErrInvalidInput, "event end must be after start")
	ErrEventCompleted = NewDomainError("calendar", "Complete", ErrAlreadyProcessed, "calendar event already completed")
)

// Subject domain errors
var (
	ErrSubjectNotFound = NewDomainError("subject", "Find", ErrNotFound, "subject not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsRetryable checks if the operation can be retried. Every engine mutation
// is idempotent or additive, so storage-level failures are always retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
