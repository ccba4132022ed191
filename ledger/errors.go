/*
errors.go - Centralized error types for the dues engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Outer layers (registry, backup, api) wrap these with more context.

ERROR CATEGORIES:
  1. Validation errors - bad user input (missing fields, duplicates)
  2. Conflict errors   - overlapping billing periods
  3. Not-found errors  - operations on missing records
  4. Format errors     - malformed backup files
  5. Soft errors       - nothing to bill (total <= 0), a no-op not a failure

PROPAGATION POLICY:
  Every error here is recoverable: it is reported upward as a result, never
  as a panic, and the repositories are never left in a partial state.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPeriodOverlap is returned when a requested billing period shares a
	// month with an existing receipt for the same member.
	ErrPeriodOverlap = errors.New("billing period overlaps an existing receipt")

	// ErrInvalidPeriod is returned when a billing range is inverted (from
	// after till).
	ErrInvalidPeriod = errors.New("invalid period: from after till")

	// ErrNothingToBill is returned when the computed total is <= 0. Callers
	// treat it as "nothing to do", not as a failure.
	ErrNothingToBill = errors.New("nothing to bill")

	// ErrReceiptNotFound is returned when a receipt id does not resolve.
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrMemberNotFound is returned when a member id does not resolve.
	ErrMemberNotFound = errors.New("member not found")

	// ErrSocietyNotFound is returned when a society id does not resolve.
	ErrSocietyNotFound = errors.New("society not found")

	// ErrUserNotFound is returned when a user id or email does not resolve.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidSnapshot is returned when a backup file fails shape
	// validation. Nothing is applied.
	ErrInvalidSnapshot = errors.New("invalid backup file format")

	// ErrDuplicateSnapshot is returned when importing a backup whose
	// timestamp already exists in the history. A no-op, reported distinctly.
	ErrDuplicateSnapshot = errors.New("backup with this timestamp already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OverlapError reports which existing receipt blocks a requested period.
type OverlapError struct {
	MemberID  MemberID
	Requested PeriodRange
	Existing  PeriodRange
	ReceiptID ReceiptID
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("period %s overlaps receipt %s covering %s",
		e.Requested, e.ReceiptID, e.Existing)
}

func (e *OverlapError) Unwrap() error { return ErrPeriodOverlap }

// ValidationError reports a rejected user input with a human-readable reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// FormatError reports why a backup file failed shape validation.
type FormatError struct {
	Detail string
}

func (e *FormatError) Error() string {
	return "invalid backup file format: " + e.Detail
}

func (e *FormatError) Unwrap() error { return ErrInvalidSnapshot }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrReceiptNotFound) ||
		errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrSocietyNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict returns true if the error is a duplicate-billing conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPeriodOverlap) ||
		errors.Is(err, ErrDuplicateSnapshot)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidSnapshot) ||
		errors.Is(err, ErrNothingToBill)
}
