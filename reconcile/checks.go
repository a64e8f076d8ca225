/*
checks.go - The individual reconciliation checks

PURPOSE:
  Pure check functions over loaded data, plus the Checker that drives a
  full read-only reconciliation of one WorkOrder through the store.

SEE ALSO:
  - report.go: Issue/severity taxonomy
  - recalc package: Runs the hard checks in fatal mode after recompute
*/
package reconcile

import (
	"context"
	"fmt"

	"github.com/mobelart/costing-engine/costing"
)

// =============================================================================
// HARD-INVARIANT CHECKS (epsilon-tolerant equality)
// =============================================================================

// CheckItemSync compares an Item's ActualLaborCost against the sum of
// WorkLog daily rates referencing it. Nil when consistent within eps.
func CheckItemSync(item *costing.WorkOrderItem, logs []costing.WorkLog, eps costing.Money) *Issue {
	logged := costing.NewMoney(0)
	for _, wl := range logs {
		if wl.ItemID == item.ID {
			logged = logged.Add(wl.DailyRate)
		}
	}
	if item.ActualLaborCost.EqualWithin(logged, eps) {
		return nil
	}
	diff := item.ActualLaborCost.Sub(logged)
	return &Issue{
		Kind:     KindLaborCostSync,
		Severity: SeverityFor(diff),
		ItemID:   item.ID,
		Expected: item.ActualLaborCost,
		Actual:   logged,
		Diff:     diff,
		Message: fmt.Sprintf("item %s labor cost %s does not match work log total %s (diff %s)",
			item.ID, item.ActualLaborCost, logged, diff.Abs()),
	}
}

// CheckDistribution compares an Item's ActualLaborCost against the sum of
// its SubTasks' costs. Nil when the Item has no SubTasks or is consistent.
func CheckDistribution(item *costing.WorkOrderItem, eps costing.Money) *Issue {
	if len(item.SubTasks) == 0 {
		return nil
	}
	distributed := costing.ItemLaborFromSubTasks(item)
	if item.ActualLaborCost.EqualWithin(distributed, eps) {
		return nil
	}
	diff := item.ActualLaborCost.Sub(distributed)
	return &Issue{
		Kind:     KindSubTaskDistribution,
		Severity: SeverityFor(diff),
		ItemID:   item.ID,
		Expected: item.ActualLaborCost,
		Actual:   distributed,
		Diff:     diff,
		Message: fmt.Sprintf("item %s labor cost %s does not match subtask sum %s (diff %s)",
			item.ID, item.ActualLaborCost, distributed, diff.Abs()),
	}
}

// =============================================================================
// ADVISORY CHECKS
// =============================================================================

// MissingAttendance finds every (worker, date) pair implied by the order's
// active production that lacks an attendance record. Advisory: entry may
// simply not have happened yet for ongoing work.
func MissingAttendance(
	wo *costing.WorkOrder,
	recorded map[costing.AttendanceKey]costing.WorkerAttendance,
	workers map[costing.WorkerID]costing.Worker,
	holidays costing.HolidaySet,
	asOf costing.Date,
) []MissingEntry {
	var missing []MissingEntry

	report := func(itemID costing.ItemID, subTaskID costing.SubTaskID, workerID costing.WorkerID, d costing.Date) {
		key := costing.AttendanceKey{WorkerID: workerID, Date: d.String()}
		if _, ok := recorded[key]; ok {
			return
		}
		entry := MissingEntry{
			OrgID:       wo.OrgID,
			WorkOrderID: wo.ID,
			ItemID:      itemID,
			SubTaskID:   subTaskID,
			WorkerID:    workerID,
			Date:        d,
		}
		if w, ok := workers[workerID]; ok {
			entry.WorkerName = w.Name
		}
		missing = append(missing, entry)
	}

	scan := func(itemID costing.ItemID, subTaskID costing.SubTaskID,
		started, ended *costing.Date, pauses []costing.PausePeriod,
		primary costing.WorkerID, helpers []costing.HelperAssignment) {
		if started == nil || primary == "" {
			return
		}
		end := asOf
		if ended != nil {
			end = *ended
		}
		// Implied days never extend past asOf: attendance for the future
		// cannot be missing.
		end = end.Min(asOf)
		for _, d := range costing.WorkingDates(*started, end, holidays, pauses, asOf) {
			report(itemID, subTaskID, primary, d)
		}
		for _, h := range helpers {
			hStart := *started
			if h.Started != nil {
				hStart = *h.Started
			}
			hEnd := end
			if h.Ended != nil {
				hEnd = h.Ended.Min(asOf)
			}
			for _, d := range costing.WorkingDates(hStart, hEnd, holidays, pauses, asOf) {
				report(itemID, subTaskID, h.WorkerID, d)
			}
		}
	}

	for i := range wo.Items {
		item := &wo.Items[i]
		if len(item.SubTasks) == 0 {
			scan(item.ID, "", item.Started, item.Ended, item.Pauses, item.WorkerID, nil)
			continue
		}
		for j := range item.SubTasks {
			st := &item.SubTasks[j]
			scan(item.ID, st.ID, st.Started, st.Ended, st.Pauses, st.WorkerID, st.Helpers)
		}
	}
	return missing
}

// WorkerEarnings cross-checks a worker's billable attendance days times
// their daily rate against the sum of their WorkLogs. Always advisory: a
// worker may split one day across several Items or work on orders outside
// the checked set, so mismatches are expected and reported for visibility
// only.
func WorkerEarnings(worker costing.Worker, attendance []costing.WorkerAttendance, logs []costing.WorkLog, eps costing.Money) *Issue {
	days := 0
	for _, a := range attendance {
		if a.WorkerID == worker.ID && a.Status.IsBillable() {
			days++
		}
	}
	// WorkLogs bill cent-rounded rates, so the expectation must too.
	expected := worker.DailyRate.Round2().MulInt(days)

	logged := costing.NewMoney(0)
	for _, wl := range logs {
		if wl.WorkerID == worker.ID {
			logged = logged.Add(wl.DailyRate)
		}
	}

	if expected.EqualWithin(logged, eps) {
		return nil
	}
	diff := expected.Sub(logged)
	return &Issue{
		Kind:     KindWorkerEarnings,
		Severity: SeverityFor(diff),
		Advisory: true,
		WorkerID: worker.ID,
		Expected: expected,
		Actual:   logged,
		Diff:     diff,
		Message: fmt.Sprintf("worker %s: %d billable attendance days at %s (%s) vs work log total %s",
			worker.ID, days, worker.DailyRate, expected, logged),
	}
}

// =============================================================================
// CHECKER - Full read-only reconciliation of one WorkOrder
// =============================================================================

// Checker loads a WorkOrder's surroundings and runs every check. It never
// mutates anything; sync/distribution findings on existing data are
// reported as data-quality issues, not corrected.
type Checker struct {
	Store   costing.Store
	Epsilon costing.Money
}

func NewChecker(store costing.Store) *Checker {
	return &Checker{Store: store, Epsilon: costing.CentEpsilon}
}

// CheckWorkOrder runs the full reconciliation for one order as of a date.
func (c *Checker) CheckWorkOrder(ctx context.Context, id costing.WorkOrderID, asOf costing.Date) (*Report, error) {
	wo, err := c.Store.LoadWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	wo.Items, err = c.Store.LoadItems(ctx, id)
	if err != nil {
		return nil, err
	}

	logs, err := c.Store.LoadWorkLogs(ctx, wo.ItemIDs())
	if err != nil {
		return nil, err
	}

	workers, err := c.Store.LoadWorkers(ctx, wo.WorkerIDs())
	if err != nil {
		return nil, err
	}

	rawHolidays, err := c.Store.LoadHolidays(ctx, wo.OrgID)
	if err != nil {
		return nil, err
	}
	holidays := costing.NewHolidaySet(rawHolidays...)

	report := &Report{WorkOrderID: id, AsOf: asOf}

	for i := range wo.Items {
		if issue := CheckItemSync(&wo.Items[i], logs, c.Epsilon); issue != nil {
			report.Issues = append(report.Issues, *issue)
		}
		if issue := CheckDistribution(&wo.Items[i], c.Epsilon); issue != nil {
			report.Issues = append(report.Issues, *issue)
		}
	}

	from, to, ok := wo.DateSpan(asOf)
	if ok {
		attendance, err := c.Store.LoadAttendance(ctx, wo.WorkerIDs(), from, to)
		if err != nil {
			return nil, err
		}
		recorded := make(map[costing.AttendanceKey]costing.WorkerAttendance, len(attendance))
		for _, a := range attendance {
			recorded[a.Key()] = a
		}

		report.Missing = MissingAttendance(wo, recorded, workers, holidays, asOf)

		for _, id := range wo.WorkerIDs() {
			w, ok := workers[id]
			if !ok {
				continue
			}
			if issue := WorkerEarnings(w, attendance, logs, c.Epsilon); issue != nil {
				report.Issues = append(report.Issues, *issue)
			}
		}
	}

	return report, nil
}

// ScanMissingAttendance runs missing-attendance detection across every
// active WorkOrder of an organization. Read-only; feeds both UI badges
// and the repair workflow.
func (c *Checker) ScanMissingAttendance(ctx context.Context, org costing.OrgID, asOf costing.Date) ([]MissingEntry, error) {
	orders, err := c.Store.LoadActiveWorkOrders(ctx, org)
	if err != nil {
		return nil, err
	}

	rawHolidays, err := c.Store.LoadHolidays(ctx, org)
	if err != nil {
		return nil, err
	}
	holidays := costing.NewHolidaySet(rawHolidays...)

	var all []MissingEntry
	for _, wo := range orders {
		from, to, ok := wo.DateSpan(asOf)
		if !ok {
			continue
		}
		workerIDs := wo.WorkerIDs()
		attendance, err := c.Store.LoadAttendance(ctx, workerIDs, from, to)
		if err != nil {
			return nil, err
		}
		recorded := make(map[costing.AttendanceKey]costing.WorkerAttendance, len(attendance))
		for _, a := range attendance {
			recorded[a.Key()] = a
		}
		workers, err := c.Store.LoadWorkers(ctx, workerIDs)
		if err != nil {
			return nil, err
		}
		all = append(all, MissingAttendance(wo, recorded, workers, holidays, asOf)...)
	}
	return all, nil
}
