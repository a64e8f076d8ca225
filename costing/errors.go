/*
errors.go - Centralized error types for the costing engine

PURPOSE:
  All error types in one place. The taxonomy separates input problems
  (caller can fix), internal consistency failures (a bug, never persist),
  and advisory data-quality findings (reported, never thrown).

ERROR CATEGORIES:
  1. InvalidWeights        - Apportioner given a zero/negative weight set
  2. MalformedState        - Entity status implies data that is missing
  3. ConsistencyViolation  - Hard invariant failed right after recompute;
                             fatal, aborts persistence
  4. Stale recalculation   - Optimistic version check lost the race

  Data-quality findings (sync drift on existing data, missing attendance,
  worker-earnings mismatches) are NOT errors: they accumulate into the
  reconciliation report. See the reconcile package.

USAGE:
  if errors.Is(err, costing.ErrConsistencyViolation) {
      // bug in recompute; nothing was persisted
  }
*/
package costing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidWeights is returned by the Apportioner for an empty,
	// zero-sum, or negative weight list. Never guesses an allocation.
	ErrInvalidWeights = errors.New("invalid apportionment weights")

	// ErrMalformedState is returned when an Item/SubTask is missing data
	// its status implies should exist (e.g. Completed with no start date).
	// Surfaced to the caller, never auto-repaired.
	ErrMalformedState = errors.New("malformed production state")

	// ErrConsistencyViolation means a hard invariant failed immediately
	// after this engine's own recompute. Indicates a bug; the write is
	// aborted and nothing is persisted.
	ErrConsistencyViolation = errors.New("consistency violation after recompute")

	// ErrStaleRecalculation is returned when the optimistic version check
	// detects a concurrent recompute committed first. Safe to retry.
	ErrStaleRecalculation = errors.New("stale recalculation: work order version changed")

	// ErrWorkOrderNotFound is returned when a referenced order doesn't exist.
	ErrWorkOrderNotFound = errors.New("work order not found")

	// ErrWorkerNotFound is returned when a referenced worker doesn't exist.
	ErrWorkerNotFound = errors.New("worker not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidWeightsError details which weight made an apportionment invalid.
type InvalidWeightsError struct {
	Index  int // -1 for a zero-sum weight list
	Weight decimal.Decimal
	Reason string
}

func (e *InvalidWeightsError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid weights: %s", e.Reason)
	}
	return fmt.Sprintf("invalid weight at index %d (%s): %s", e.Index, e.Weight, e.Reason)
}

func (e *InvalidWeightsError) Unwrap() error { return ErrInvalidWeights }

// MalformedStateError identifies the entity whose state contradicts its status.
type MalformedStateError struct {
	Entity string // "item" or "subtask"
	ID     string
	Reason string
}

func (e *MalformedStateError) Error() string {
	return fmt.Sprintf("malformed %s %s: %s", e.Entity, e.ID, e.Reason)
}

func (e *MalformedStateError) Unwrap() error { return ErrMalformedState }

// ConsistencyError reports a hard-invariant failure found right after
// recompute. Expected and Actual are the two sides of the failed check.
type ConsistencyError struct {
	ItemID   ItemID
	Check    string // "labor_cost_sync" or "subtask_distribution"
	Expected Money
	Actual   Money
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation on item %s (%s): expected %s, got %s (diff %s)",
		e.ItemID, e.Check, e.Expected, e.Actual, e.Expected.Sub(e.Actual).Abs())
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistencyViolation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleRecalculation)
}

// IsClientError returns true if the error is due to invalid input data
// rather than an engine bug.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidWeights) ||
		errors.Is(err, ErrMalformedState)
}

// IsFatal returns true for errors that indicate a bug in the recompute
// logic itself.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConsistencyViolation)
}
