/*
errors.go - Centralized error types for the engine

PURPOSE:

	All error types in one place for consistency and discoverability.
	Callers classify with the helpers at the bottom instead of matching
	individual sentinels.

ERROR CATEGORIES (one per taxonomy class):
 1. Validation errors   - bad input, surfaced, never retried
 2. Conflict errors     - stale state, caller may retry with fresh state
 3. Insufficient balance - surfaced, never auto-retried
 4. Invariant violations - correctness bugs in the engine itself; logged
    distinctly from user errors

USAGE:

	if engine.IsConflict(err) { ... 409 ... }
	var ib *engine.InsufficientBalanceError
	if errors.As(err, &ib) { ... ib.Available ... }
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Validation.
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrInvalidInput             = errors.New("invalid input")
	ErrBelowMinimum             = errors.New("withdrawal below minimum")
	ErrDestinationNotConfigured = errors.New("withdrawal destination not configured")

	// Conflicts.
	ErrSameLevel               = errors.New("already on requested level")
	ErrAlreadyProcessed        = errors.New("request already processed")
	ErrNotPending              = errors.New("request is not pending")
	ErrNotActive               = errors.New("slot is not active")
	ErrAlreadyWithdrawnToday   = errors.New("already withdrawn today")
	ErrConcurrentModification  = errors.New("concurrent modification detected")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrAccountExists           = errors.New("account already exists")

	// Balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Not found.
	ErrAccountNotFound = errors.New("account not found")
	ErrSlotNotFound    = errors.New("investment slot not found")
	ErrRequestNotFound = errors.New("withdrawal request not found")
	ErrUnknownTier     = errors.New("unknown tier")

	// Fatal.
	ErrInvariantViolation = errors.New("invariant violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports how short the account is.
type InsufficientBalanceError struct {
	AccountID AccountID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InvariantViolationError indicates a correctness bug in the engine itself,
// not bad input. It must be logged distinctly and never swallowed.
type InvariantViolationError struct {
	AccountID AccountID
	Detail    string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation for account %s: %s", e.AccountID, e.Detail)
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrBelowMinimum) ||
		errors.Is(err, ErrDestinationNotConfigured)
}

// IsConflict returns true if the error reflects stale state; the caller
// may retry with fresh state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSameLevel) ||
		errors.Is(err, ErrAlreadyProcessed) ||
		errors.Is(err, ErrNotPending) ||
		errors.Is(err, ErrNotActive) ||
		errors.Is(err, ErrAlreadyWithdrawnToday) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrAccountExists)
}

// IsRetryable returns true if the operation might succeed on retry as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrSlotNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrUnknownTier)
}
