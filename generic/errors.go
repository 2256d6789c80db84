/*
errors.go - Centralized error types for the balance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stores and services wrap these errors with additional context.

ERROR CATEGORIES:
  1. Not-found errors - A referenced worker/user/assignment/holiday is missing
  2. Validation errors - Missing or invalid request fields
  3. Store errors - Database-level failures (wrapped, passed through)

USAGE:
  if errors.Is(err, generic.ErrWorkerNotFound) {
      // 404
  }

SEE ALSO:
  - api/handlers.go: writeDomainError maps these to status codes
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrWorkerNotFound     = errors.New("worker not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrHolidayNotFound    = errors.New("holiday not found")
	ErrBalanceNotFound    = errors.New("balance not found")

	// ErrInvalidMonth is returned when a month/year pair cannot form a period.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrValidation is the sentinel unwrapped by ValidationError.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError lists the request fields that are missing or invalid.
type ValidationError struct {
	Fields []string
}

func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidMonth)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkerNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrHolidayNotFound) ||
		errors.Is(err, ErrBalanceNotFound)
}
