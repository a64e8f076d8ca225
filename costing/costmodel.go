/*
costmodel.go - Labor cost and profit rollups

PURPOSE:
  Pure rollup functions over the WorkOrder hierarchy:

    SubTask labor  = working days x primary worker's daily rate
                     + each helper's own days x their own rate
    Item labor     = sum of SubTask labor (or computed directly from the
                     Item's own range when it has no SubTasks)
    Item profit    = ProductValue - MaterialCost - TransportShare
                     - ServicesTotal - ActualLaborCost

  Profit is never floored at zero: negative profit is a real finding and
  must be surfaced. Margin reports 0 (not NaN) when ProductValue is zero
  so downstream display stays stable.

DIRECTION OF TRUTH:
  SubTask costs are computed bottom-up from calendar data first;
  Item.ActualLaborCost is defined as their sum. Apportionment runs the
  other way only when a single measured pool must be split across
  co-located SubTasks (see apportion.go).

SEE ALSO:
  - calendar.go: Working-day counting these rollups are built on
  - recalc package: Drives these computations and persists the results
*/
package costing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// LABOR COST
// =============================================================================

// LaborResult is the outcome of computing one entity's labor cost.
type LaborResult struct {
	WorkingDays int // primary worker's billable days
	Counts      DayCounts
	Cost        Money

	// One entry per participating worker per billable day, in
	// (date, worker) order. Source material for WorkLog generation.
	Attributions []LaborAttribution
}

// LaborAttribution is one worker-day of billed labor.
type LaborAttribution struct {
	WorkerID WorkerID
	Date     Date
	Rate     Money
}

// SubTaskLabor computes a SubTask's working days and labor cost over
// [Started, Ended-or-asOf] minus its own pause periods.
//
// Returns MalformedState when the status implies a start date that is
// missing, and ErrWorkerNotFound when a referenced worker has no rate.
func SubTaskLabor(st *SubTask, rates map[WorkerID]Money, holidays HolidaySet, asOf Date) (LaborResult, error) {
	return laborOver("subtask", string(st.ID), st.Status, st.Started, st.Ended,
		st.Pauses, st.WorkerID, st.Helpers, rates, holidays, asOf)
}

// ItemDirectLabor computes an Item's labor cost from its own range and
// pauses. Only valid for Items without SubTasks.
func ItemDirectLabor(item *WorkOrderItem, rates map[WorkerID]Money, holidays HolidaySet, asOf Date) (LaborResult, error) {
	return laborOver("item", string(item.ID), item.Status, item.Started, item.Ended,
		item.Pauses, item.WorkerID, nil, rates, holidays, asOf)
}

func laborOver(
	entity, id string,
	status TaskStatus,
	started, ended *Date,
	pauses []PausePeriod,
	primary WorkerID,
	helpers []HelperAssignment,
	rates map[WorkerID]Money,
	holidays HolidaySet,
	asOf Date,
) (LaborResult, error) {
	if started == nil {
		if status.RequiresStart() {
			return LaborResult{}, &MalformedStateError{
				Entity: entity, ID: id,
				Reason: "status " + string(status) + " but no start date",
			}
		}
		// Not started yet: zero days, zero cost.
		return LaborResult{Cost: NewMoney(0)}, nil
	}
	if primary == "" {
		return LaborResult{Cost: NewMoney(0)}, nil
	}

	end := asOf
	if ended != nil {
		end = *ended
	}

	rate, ok := rates[primary]
	if !ok {
		return LaborResult{}, ErrWorkerNotFound
	}
	// Daily rates bill in whole cents. Quantizing here keeps attributions,
	// the rolled-up cost, and the WorkLogs generated from them on the same
	// cent grid even when a stored rate carries sub-cent precision.
	rate = rate.Round2()

	counts := CountWorkingDays(*started, end, holidays, pauses, asOf)
	dates := WorkingDates(*started, end, holidays, pauses, asOf)

	result := LaborResult{
		WorkingDays: counts.Working,
		Counts:      counts,
		Cost:        rate.MulInt(counts.Working),
	}
	for _, d := range dates {
		result.Attributions = append(result.Attributions, LaborAttribution{
			WorkerID: primary, Date: d, Rate: rate,
		})
	}

	// Helpers bill at their own rate over their own range; nil bounds
	// inherit the primary range. Pauses apply to everyone on the task.
	for _, h := range helpers {
		hRate, ok := rates[h.WorkerID]
		if !ok {
			return LaborResult{}, ErrWorkerNotFound
		}
		hRate = hRate.Round2()
		hStart := *started
		if h.Started != nil {
			hStart = *h.Started
		}
		hEnd := end
		if h.Ended != nil {
			hEnd = *h.Ended
		}
		hDates := WorkingDates(hStart, hEnd, holidays, pauses, asOf)
		result.Cost = result.Cost.Add(hRate.MulInt(len(hDates)))
		for _, d := range hDates {
			result.Attributions = append(result.Attributions, LaborAttribution{
				WorkerID: h.WorkerID, Date: d, Rate: hRate,
			})
		}
	}

	return result, nil
}

// =============================================================================
// ITEM ROLLUPS
// =============================================================================

// ItemLaborFromSubTasks sums the (already computed) SubTask costs.
func ItemLaborFromSubTasks(item *WorkOrderItem) Money {
	total := NewMoney(0)
	for i := range item.SubTasks {
		total = total.Add(item.SubTasks[i].ActualLaborCost)
	}
	return total
}

// ItemProfit computes profit from the Item's money fields. No flooring:
// negative profit is valid and surfaced as-is.
func ItemProfit(item *WorkOrderItem) Money {
	return item.ProductValue.
		Sub(item.MaterialCost).
		Sub(item.TransportShare).
		Sub(item.ServicesTotal).
		Sub(item.ActualLaborCost)
}

// ProfitMargin returns profit as a percentage of ProductValue, or zero
// when ProductValue is not positive (never NaN).
func ProfitMargin(item *WorkOrderItem) decimal.Decimal {
	if !item.ProductValue.IsPositive() {
		return decimal.Zero
	}
	return ItemProfit(item).Value.
		Div(item.ProductValue.Value).
		Mul(decimal.NewFromInt(100))
}
