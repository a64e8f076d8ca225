/*
Package recalc is the cascade entry point invoked after any attendance or
work-order edit.

PURPOSE:
  One RecalculateWorkOrder pass:
    1. Load the order, its Items/SubTasks, and every worker, holiday,
       attendance and WorkLog record touching them
    2. Recompute working days and labor cost per SubTask (or per Item
       when it has no SubTasks), regenerating the WorkLog set; a
       worker-day claimed by several SubTasks of one Item is billed once
       and apportioned across them by quantity
    3. Roll SubTask costs up into each Item's ActualLaborCost
    4. Verify the hard invariants; a failure here is a bug in this
       engine, aborts the write, and persists nothing
    5. Persist Items, SubTasks and WorkLogs atomically per WorkOrder

IDEMPOTENCE:
  WorkLog IDs are UUIDv5 values derived from (item, subtask, worker, day),
  and logs are emitted in a fixed sort order, so re-running with unchanged
  attendance yields byte-identical WorkLogs. Retrying after a persistence
  failure is always safe.

CONCURRENCY:
  Read-only loading fans out across the store (errgroup); all writes for
  one order go through the single atomic save. Recomputes of the same
  order are serialized on a per-order lock, and the store's optimistic
  version check makes a lost race abort with ErrStaleRecalculation rather
  than overwrite newer numbers. Different orders share no mutable state
  and recalculate concurrently.

SEE ALSO:
  - costing package: The pure computation this drives
  - reconcile package: The checks run in fatal mode in step 4
*/
package recalc

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mobelart/costing-engine/costing"
	"github.com/mobelart/costing-engine/reconcile"
)

// workLogNamespace seeds deterministic UUIDv5 WorkLog IDs.
var workLogNamespace = uuid.MustParse("7d44c1e9-30a5-4f3b-9c87-52c0d1f3a6b2")

// =============================================================================
// ORCHESTRATOR
// =============================================================================

type Orchestrator struct {
	store   costing.Store
	log     *slog.Logger
	epsilon costing.Money

	mu    sync.Mutex
	locks map[costing.WorkOrderID]*sync.Mutex
}

func New(store costing.Store, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		store:   store,
		log:     log,
		epsilon: costing.CentEpsilon,
		locks:   make(map[costing.WorkOrderID]*sync.Mutex),
	}
}

// Result is one order's recompute outcome.
type Result struct {
	WorkOrderID costing.WorkOrderID
	Items       []costing.WorkOrderItem
	WorkLogs    []costing.WorkLog
	// Advisory findings gathered during the pass. Never blocks the save.
	Missing []reconcile.MissingEntry
}

// RecalculateFunc adapts the orchestrator for injection into the repair
// workflow.
func (o *Orchestrator) RecalculateFunc() reconcile.RecalculateFunc {
	return func(ctx context.Context, id costing.WorkOrderID, asOf costing.Date) error {
		_, err := o.RecalculateWorkOrder(ctx, id, asOf)
		return err
	}
}

// RecalculateWorkOrder recomputes one order end to end and persists the
// result atomically. asOf closes every open-ended range.
func (o *Orchestrator) RecalculateWorkOrder(ctx context.Context, id costing.WorkOrderID, asOf costing.Date) (*Result, error) {
	lock := o.orderLock(id)
	lock.Lock()
	defer lock.Unlock()

	wo, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}

	workers, holidays, attendance, err := o.loadSurroundings(ctx, wo, asOf)
	if err != nil {
		return nil, err
	}
	rates := make(map[costing.WorkerID]costing.Money, len(workers))
	for wid, w := range workers {
		rates[wid] = w.DailyRate
	}

	logs, err := o.recompute(wo, rates, workers, holidays, asOf)
	if err != nil {
		return nil, err
	}

	// Hard invariants must hold on our own freshly computed numbers.
	// A failure is a bug in the recompute logic; abort before persisting.
	for i := range wo.Items {
		if issue := reconcile.CheckItemSync(&wo.Items[i], logs, o.epsilon); issue != nil {
			return nil, &costing.ConsistencyError{
				ItemID: issue.ItemID, Check: string(issue.Kind),
				Expected: issue.Expected, Actual: issue.Actual,
			}
		}
		if issue := reconcile.CheckDistribution(&wo.Items[i], o.epsilon); issue != nil {
			return nil, &costing.ConsistencyError{
				ItemID: issue.ItemID, Check: string(issue.Kind),
				Expected: issue.Expected, Actual: issue.Actual,
			}
		}
	}

	state := costing.RecomputedState{
		WorkOrderID: wo.ID,
		Version:     wo.Version,
		Items:       wo.Items,
		WorkLogs:    logs,
	}
	if err := o.store.SaveRecomputedState(ctx, state); err != nil {
		return nil, fmt.Errorf("recalc: persist order %s: %w", id, err)
	}

	missing := reconcile.MissingAttendance(wo, attendance, workers, holidays, asOf)

	o.log.Info("work order recalculated",
		slog.String("work_order", string(id)),
		slog.Int("items", len(wo.Items)),
		slog.Int("work_logs", len(logs)),
		slog.Int("missing_attendance", len(missing)))

	return &Result{
		WorkOrderID: wo.ID,
		Items:       wo.Items,
		WorkLogs:    logs,
		Missing:     missing,
	}, nil
}

// =============================================================================
// LOADING
// =============================================================================

func (o *Orchestrator) load(ctx context.Context, id costing.WorkOrderID) (*costing.WorkOrder, error) {
	wo, err := o.store.LoadWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	wo.Items, err = o.store.LoadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return wo, nil
}

// loadSurroundings fans the independent read-only loads out in parallel.
func (o *Orchestrator) loadSurroundings(ctx context.Context, wo *costing.WorkOrder, asOf costing.Date) (
	map[costing.WorkerID]costing.Worker,
	costing.HolidaySet,
	map[costing.AttendanceKey]costing.WorkerAttendance,
	error,
) {
	var (
		workers  map[costing.WorkerID]costing.Worker
		holidays costing.HolidaySet
		recorded = make(map[costing.AttendanceKey]costing.WorkerAttendance)
	)
	workerIDs := wo.WorkerIDs()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		workers, err = o.store.LoadWorkers(gctx, workerIDs)
		return err
	})
	g.Go(func() error {
		raw, err := o.store.LoadHolidays(gctx, wo.OrgID)
		if err != nil {
			return err
		}
		holidays = costing.NewHolidaySet(raw...)
		return nil
	})
	g.Go(func() error {
		from, to, ok := wo.DateSpan(asOf)
		if !ok {
			return nil
		}
		raw, err := o.store.LoadAttendance(gctx, workerIDs, from, to)
		if err != nil {
			return err
		}
		for _, a := range raw {
			recorded[a.Key()] = a
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return workers, holidays, recorded, nil
}

// =============================================================================
// RECOMPUTE
// =============================================================================

// recompute rewrites every derived field on the order in place and
// returns the regenerated WorkLog set. Pure given its inputs.
func (o *Orchestrator) recompute(
	wo *costing.WorkOrder,
	rates map[costing.WorkerID]costing.Money,
	workers map[costing.WorkerID]costing.Worker,
	holidays costing.HolidaySet,
	asOf costing.Date,
) ([]costing.WorkLog, error) {
	var logs []costing.WorkLog

	emit := func(itemID costing.ItemID, subTaskID costing.SubTaskID, attr costing.LaborAttribution) {
		wl := costing.WorkLog{
			ID:        workLogID(itemID, subTaskID, attr.WorkerID, attr.Date),
			Date:      attr.Date,
			WorkerID:  attr.WorkerID,
			DailyRate: attr.Rate,
			ItemID:    itemID,
			SubTaskID: subTaskID,
			OrgID:     wo.OrgID,
		}
		if w, ok := workers[attr.WorkerID]; ok {
			wl.WorkerName = w.Name
		}
		logs = append(logs, wl)
	}

	for i := range wo.Items {
		item := &wo.Items[i]

		if len(item.SubTasks) == 0 {
			result, err := costing.ItemDirectLabor(item, rates, holidays, asOf)
			if err != nil {
				return nil, err
			}
			item.ActualLaborCost = result.Cost.Round2()
			for _, attr := range result.Attributions {
				emit(item.ID, "", attr)
			}
			continue
		}

		attrs := make([][]costing.LaborAttribution, len(item.SubTasks))
		for j := range item.SubTasks {
			st := &item.SubTasks[j]
			result, err := costing.SubTaskLabor(st, rates, holidays, asOf)
			if err != nil {
				return nil, err
			}
			st.WorkingDays = result.WorkingDays
			attrs[j] = result.Attributions
		}
		if err := apportionSharedDays(item, attrs); err != nil {
			return nil, err
		}

		total := costing.NewMoney(0)
		for j := range item.SubTasks {
			st := &item.SubTasks[j]
			cost := costing.NewMoney(0)
			for _, attr := range attrs[j] {
				cost = cost.Add(attr.Rate)
				emit(item.ID, st.ID, attr)
			}
			st.ActualLaborCost = cost.Round2()
			total = total.Add(st.ActualLaborCost)
		}
		item.ActualLaborCost = total
	}

	// Fixed ordering so regenerated sets are byte-identical run to run.
	sort.Slice(logs, func(a, b int) bool {
		if logs[a].ItemID != logs[b].ItemID {
			return logs[a].ItemID < logs[b].ItemID
		}
		if logs[a].SubTaskID != logs[b].SubTaskID {
			return logs[a].SubTaskID < logs[b].SubTaskID
		}
		if !logs[a].Date.Equal(logs[b].Date) {
			return logs[a].Date.Before(logs[b].Date)
		}
		return logs[a].WorkerID < logs[b].WorkerID
	})
	return logs, nil
}

// apportionSharedDays handles a worker-day claimed by several SubTasks of
// the same Item: the day is one pool of that worker's daily rate, split
// across the claimants by their quantity share so the day is never billed
// twice against the Item.
func apportionSharedDays(item *costing.WorkOrderItem, attrs [][]costing.LaborAttribution) error {
	type claimRef struct{ sub, idx int }
	claims := make(map[string][]claimRef)
	for j := range attrs {
		for k, attr := range attrs[j] {
			key := string(attr.WorkerID) + "/" + attr.Date.String()
			claims[key] = append(claims[key], claimRef{j, k})
		}
	}

	for _, refs := range claims {
		if len(refs) < 2 {
			continue
		}
		rate := attrs[refs[0].sub][refs[0].idx].Rate
		quantities := make([]int, len(refs))
		sum := 0
		for n, ref := range refs {
			quantities[n] = item.SubTasks[ref.sub].Quantity
			sum += quantities[n]
		}
		// Quantities should be positive; an unquantified split falls back
		// to equal shares rather than failing the whole recompute.
		if sum <= 0 {
			for n := range quantities {
				quantities[n] = 1
			}
		}
		shares, err := costing.ApportionByQuantity(rate, quantities)
		if err != nil {
			return err
		}
		for n, ref := range refs {
			attrs[ref.sub][ref.idx].Rate = shares[n]
		}
	}
	return nil
}

// workLogID derives a stable ID from the log's identity: recomputing the
// same worker-day yields the same ID every time.
func workLogID(itemID costing.ItemID, subTaskID costing.SubTaskID, workerID costing.WorkerID, d costing.Date) costing.WorkLogID {
	name := fmt.Sprintf("%s/%s/%s/%s", itemID, subTaskID, workerID, d)
	return costing.WorkLogID(uuid.NewSHA1(workLogNamespace, []byte(name)).String())
}

func (o *Orchestrator) orderLock(id costing.WorkOrderID) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[id] = lock
	}
	return lock
}
