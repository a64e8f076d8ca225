/*
Package reconcile detects and classifies desynchronization between the two
independently-recorded sources of labor truth: per-worker daily attendance
and per-item WorkLogs.

PURPOSE:
  After any recompute, two hard invariants must hold per Item:

    |ActualLaborCost - sum(WorkLog rates for the item)|   <= epsilon
    |ActualLaborCost - sum(SubTask.ActualLaborCost)|      <= epsilon

  Found right after a recompute, a violation is a bug in the engine and is
  fatal. Found on existing data outside a recompute cycle, it is a
  data-quality finding: reported with a severity, never silently fixed.

  Two further checks are advisory by design and never fail anything:

    - Missing attendance: a (worker, date) pair implied by an active
      SubTask with no attendance record. Entry may simply not have
      happened yet.
    - Worker earnings: attendance-days x daily rate vs the worker's
      WorkLog sum. A worker may legitimately split one day across several
      Items or work outside the current order, so mismatches are expected.

SEVERITY BANDS:
  diff > 100 currency units  -> high
  diff > 10                  -> medium
  otherwise                  -> low

SEE ALSO:
  - checks.go: The individual checks
  - repair.go: The mark-attendance-and-recalculate workflow
*/
package reconcile

import (
	"fmt"

	"github.com/mobelart/costing-engine/costing"
)

// =============================================================================
// SEVERITY
// =============================================================================

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Band thresholds in currency units.
var (
	severityHighAbove   = costing.NewMoney(100)
	severityMediumAbove = costing.NewMoney(10)
)

// SeverityFor classifies an absolute difference into a band.
func SeverityFor(diff costing.Money) Severity {
	abs := diff.Abs()
	if abs.GreaterThan(severityHighAbove) {
		return SeverityHigh
	}
	if abs.GreaterThan(severityMediumAbove) {
		return SeverityMedium
	}
	return SeverityLow
}

// =============================================================================
// ISSUES
// =============================================================================

type IssueKind string

const (
	KindLaborCostSync       IssueKind = "labor_cost_sync"
	KindSubTaskDistribution IssueKind = "subtask_distribution"
	KindMissingAttendance   IssueKind = "missing_attendance"
	KindWorkerEarnings      IssueKind = "worker_earnings"
)

// Issue is one data-quality finding. Advisory issues are reported for
// visibility only; non-advisory ones indicate corruption on existing
// data, or a fatal bug when raised right after a recompute.
type Issue struct {
	Kind     IssueKind
	Severity Severity
	Advisory bool
	ItemID   costing.ItemID
	WorkerID costing.WorkerID
	Expected costing.Money
	Actual   costing.Money
	Diff     costing.Money
	Message  string
}

// MissingEntry is one (worker, date) slot implied by active production
// with no attendance record, surfaced for operator resolution.
type MissingEntry struct {
	OrgID       costing.OrgID
	WorkOrderID costing.WorkOrderID
	ItemID      costing.ItemID
	SubTaskID   costing.SubTaskID
	WorkerID    costing.WorkerID
	WorkerName  string
	Date        costing.Date
}

func (e MissingEntry) String() string {
	return fmt.Sprintf("missing attendance: worker %s on %s (order %s, item %s)",
		e.WorkerID, e.Date, e.WorkOrderID, e.ItemID)
}

// Report is the reconciliation outcome for one WorkOrder.
type Report struct {
	WorkOrderID costing.WorkOrderID
	AsOf        costing.Date
	Issues      []Issue
	Missing     []MissingEntry
}

// Consistent reports whether every hard check passed. Advisory issues and
// missing-attendance entries do not count against consistency.
func (r *Report) Consistent() bool {
	for _, issue := range r.Issues {
		if !issue.Advisory {
			return false
		}
	}
	return true
}
