/*
batch.go - Recalculation across an organization's active orders

PURPOSE:
  Runs the per-order recompute over every active WorkOrder, continuing
  past individual failures: one order's malformed state or consistency
  violation never blocks the rest of the batch.
*/
package recalc

import (
	"context"
	"log/slog"

	"github.com/mobelart/costing-engine/costing"
)

// OrderFailure records one order that could not be recalculated.
type OrderFailure struct {
	WorkOrderID costing.WorkOrderID
	Err         error
}

// BatchResult aggregates a batch run. Failures are partial outcomes, not
// an error on the run itself.
type BatchResult struct {
	Results  []*Result
	Failures []OrderFailure
}

// RecalculateActiveOrders recomputes every active order in the
// organization. Returns an error only when the order list itself cannot
// be loaded.
func (o *Orchestrator) RecalculateActiveOrders(ctx context.Context, org costing.OrgID, asOf costing.Date) (*BatchResult, error) {
	orders, err := o.store.LoadActiveWorkOrders(ctx, org)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{}
	for _, wo := range orders {
		result, err := o.RecalculateWorkOrder(ctx, wo.ID, asOf)
		if err != nil {
			level := slog.LevelWarn
			if costing.IsFatal(err) {
				level = slog.LevelError
			}
			o.log.Log(ctx, level, "order recalculation failed",
				slog.String("work_order", string(wo.ID)),
				slog.String("error", err.Error()))
			batch.Failures = append(batch.Failures, OrderFailure{WorkOrderID: wo.ID, Err: err})
			continue
		}
		batch.Results = append(batch.Results, result)
	}
	return batch, nil
}
