/*
repair.go - The mark-attendance-and-recalculate workflow

PURPOSE:
  The operator-facing repair flow: assign missing attendance, then trigger
  one recompute of the affected WorkOrder. The batch form writes every
  entry first and recomputes once at the end - fixing N missing days must
  not recompute the same order N times.

SEE ALSO:
  - checks.go: Where the missing entries come from
  - recalc package: Supplies the RecalculateFunc
*/
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/mobelart/costing-engine/costing"
)

// ErrInvalidAttendanceStatus is returned for a status outside the closed
// attendance vocabulary.
var ErrInvalidAttendanceStatus = errors.New("invalid attendance status")

// RecalculateFunc triggers a full recompute of one WorkOrder. Injected so
// this package does not depend on the orchestrator.
type RecalculateFunc func(ctx context.Context, id costing.WorkOrderID, asOf costing.Date) error

// MarkOptions controls the repair workflow.
type MarkOptions struct {
	// SkipRecalculation writes the attendance records without triggering
	// a recompute. Used when the caller batches further edits.
	SkipRecalculation bool
}

// Repairer drives the attendance repair workflow.
type Repairer struct {
	Store       costing.Store
	Recalculate RecalculateFunc
}

func NewRepairer(store costing.Store, recalc RecalculateFunc) *Repairer {
	return &Repairer{Store: store, Recalculate: recalc}
}

// MarkAttendance writes one attendance record and, unless skipped,
// recomputes the affected WorkOrder.
func (r *Repairer) MarkAttendance(ctx context.Context, workOrderID costing.WorkOrderID, entry costing.AttendanceEntry, opts MarkOptions, asOf costing.Date) error {
	return r.MarkAttendanceBatch(ctx, workOrderID, []costing.AttendanceEntry{entry}, opts, asOf)
}

// MarkAttendanceBatch writes a batch of (worker, date, status) assignments
// and then triggers a single recompute of the affected WorkOrder.
func (r *Repairer) MarkAttendanceBatch(ctx context.Context, workOrderID costing.WorkOrderID, entries []costing.AttendanceEntry, opts MarkOptions, asOf costing.Date) error {
	const op = "reconcile.MarkAttendanceBatch"

	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if !costing.ValidAttendanceStatus(e.Status) {
			return fmt.Errorf("%s: worker %s on %s: %w: %q",
				op, e.WorkerID, e.Date, ErrInvalidAttendanceStatus, e.Status)
		}
		if e.Date.IsZero() {
			return fmt.Errorf("%s: worker %s: missing date", op, e.WorkerID)
		}
	}

	if err := r.Store.UpsertAttendance(ctx, entries); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if opts.SkipRecalculation || r.Recalculate == nil {
		return nil
	}
	if err := r.Recalculate(ctx, workOrderID, asOf); err != nil {
		return fmt.Errorf("%s: recompute after repair: %w", op, err)
	}
	return nil
}
