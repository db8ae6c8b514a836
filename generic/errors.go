/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages return these (or wrap them) so callers can branch
  with errors.Is / errors.As without knowing which engine failed.

ERROR CATEGORIES:
  1. Validation - missing/invalid field, non-positive amount, bad date.
     Raised before any section is written; retry with corrected input.
  2. Not found - referenced bill/debt does not exist. Raised before writes.
  3. Store - persistence failures and optimistic-concurrency conflicts.

NOT ERRORS:
  - A payoff that never amortizes is reported by debts.PayoffUnreachable.
  - An unknown currency pair converts as identity (see currency.go).

SEE ALSO:
  - store.go: Store contract that returns ErrConcurrentModification
  - api/handlers.go: HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every input validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDate is returned when a value is not a real calendar date.
	ErrInvalidDate = fmt.Errorf("%w: invalid date", ErrValidation)

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = fmt.Errorf("%w: invalid period: end before start", ErrValidation)

	// ErrNotFound is the root of every missing-reference failure.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned when a section version check fails.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrNotArraySection is returned when appending to a section that holds
	// something other than a JSON array.
	ErrNotArraySection = errors.New("section is not an array")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for &ValidationError{Field: field, Reason: reason}.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // "bill", "debt", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
