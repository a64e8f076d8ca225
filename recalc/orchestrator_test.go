package recalc_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobelart/costing-engine/costing"
	"github.com/mobelart/costing-engine/costing/store"
	"github.com/mobelart/costing-engine/recalc"
	"github.com/mobelart/costing-engine/reconcile"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) costing.Date {
	return costing.NewDate(year, month, day)
}

func dateP(year int, month time.Month, day int) *costing.Date {
	d := costing.NewDate(year, month, day)
	return &d
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedOrder builds the reference order: one Item with two SubTasks worked
// by two workers over the week of Jan 8 2024.
func seedOrder(mem *store.Memory) {
	mem.PutWorker(costing.Worker{ID: "w-1", Name: "Marko", DailyRate: costing.NewMoney(50), OrgID: "org-1"})
	mem.PutWorker(costing.Worker{ID: "w-2", Name: "Ivana", DailyRate: costing.NewMoney(40), OrgID: "org-1"})
	mem.PutWorkOrder(costing.WorkOrder{
		ID: "wo-1", Number: "RN-2024-001", OrgID: "org-1",
		Status: costing.OrderInProgress, Version: 1,
		Items: []costing.WorkOrderItem{{
			ID: "item-1", WorkOrderID: "wo-1",
			ProductName: "kitchen cabinet", Quantity: 10,
			Status:         costing.TaskInProgress,
			ProductValue:   costing.NewMoney(1000),
			MaterialCost:   costing.NewMoney(300),
			TransportShare: costing.NewMoney(50),
			ServicesTotal:  costing.NewMoney(30),
			SubTasks: []costing.SubTask{
				{
					ID: "st-1", ItemID: "item-1", Quantity: 6,
					Status: costing.TaskInProgress, WorkerID: "w-1",
					Started: dateP(2024, time.January, 8), Ended: dateP(2024, time.January, 12),
				},
				{
					ID: "st-2", ItemID: "item-1", Quantity: 4,
					Status: costing.TaskCompleted, WorkerID: "w-2",
					Started: dateP(2024, time.January, 8), Ended: dateP(2024, time.January, 10),
				},
			},
		}},
	})
}

// =============================================================================
// FULL RECOMPUTE
// =============================================================================

func TestRecalculateWorkOrder_FullPass(t *testing.T) {
	// GIVEN: Two SubTasks, Mon-Fri at 50/day and Mon-Wed at 40/day
	// WHEN: Recalculating the order
	// THEN: SubTask costs 250 and 120, Item rollup 370, one WorkLog per
	//       worker per working day, and the hard invariants hold

	ctx := context.Background()
	mem := store.NewMemory()
	seedOrder(mem)

	orch := recalc.New(mem, quietLogger())
	result, err := orch.RecalculateWorkOrder(ctx, "wo-1", date(2024, time.January, 12))
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	item := result.Items[0]
	assert.Equal(t, "370.00", item.ActualLaborCost.String())
	assert.Equal(t, 5, item.SubTasks[0].WorkingDays)
	assert.Equal(t, "250.00", item.SubTasks[0].ActualLaborCost.String())
	assert.Equal(t, 3, item.SubTasks[1].WorkingDays)
	assert.Equal(t, "120.00", item.SubTasks[1].ActualLaborCost.String())
	assert.Len(t, result.WorkLogs, 8)

	// Persisted state satisfies both hard invariants.
	items, err := mem.LoadItems(ctx, "wo-1")
	require.NoError(t, err)
	logs, err := mem.LoadWorkLogs(ctx, []costing.ItemID{"item-1"})
	require.NoError(t, err)
	assert.Nil(t, reconcile.CheckItemSync(&items[0], logs, costing.CentEpsilon))
	assert.Nil(t, reconcile.CheckDistribution(&items[0], costing.CentEpsilon))

	// Profit follows from the recomputed labor cost.
	assert.Equal(t, "250.00", costing.ItemProfit(&items[0]).String())

	// No attendance was recorded: every worker-day is surfaced.
	assert.Len(t, result.Missing, 8)
}

func TestRecalculateWorkOrder_Idempotent(t *testing.T) {
	// Re-running with unchanged attendance yields byte-identical WorkLogs.
	ctx := context.Background()
	mem := store.NewMemory()
	seedOrder(mem)

	orch := recalc.New(mem, quietLogger())
	asOf := date(2024, time.January, 12)

	first, err := orch.RecalculateWorkOrder(ctx, "wo-1", asOf)
	require.NoError(t, err)
	second, err := orch.RecalculateWorkOrder(ctx, "wo-1", asOf)
	require.NoError(t, err)

	assert.Equal(t, first.WorkLogs, second.WorkLogs)
	assert.Equal(t, first.Items, second.Items)
}

func TestRecalculateWorkOrder_ReplacesPriorLogs(t *testing.T) {
	// A prior recompute's logs are fully replaced, never accumulated.
	ctx := context.Background()
	mem := store.NewMemory()
	seedOrder(mem)

	// A leftover log from an earlier, wrong computation.
	mem.PutWorkLog(costing.WorkLog{
		ID: "stale-log", ItemID: "item-1", WorkerID: "w-1",
		Date: date(2023, time.December, 1), DailyRate: costing.NewMoney(999),
	})

	orch := recalc.New(mem, quietLogger())
	_, err := orch.RecalculateWorkOrder(ctx, "wo-1", date(2024, time.January, 12))
	require.NoError(t, err)

	logs, err := mem.LoadWorkLogs(ctx, []costing.ItemID{"item-1"})
	require.NoError(t, err)
	assert.Len(t, logs, 8)
	for _, wl := range logs {
		assert.NotEqual(t, costing.WorkLogID("stale-log"), wl.ID)
	}
}

func TestRecalculateWorkOrder_PausedSubTaskAccruesNothing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.PutWorker(costing.Worker{ID: "w-1", DailyRate: costing.NewMoney(50), OrgID: "org-1"})
	mem.PutWorkOrder(costing.WorkOrder{
		ID: "wo-1", OrgID: "org-1", Status: costing.OrderInProgress, Version: 1,
		Items: []costing.WorkOrderItem{{
			ID: "item-1", WorkOrderID: "wo-1", Status: costing.TaskInProgress,
			SubTasks: []costing.SubTask{{
				ID: "st-1", ItemID: "item-1", Quantity: 1,
				Status: costing.TaskInProgress, WorkerID: "w-1", Paused: true,
				Started: dateP(2024, time.April, 1),
				Pauses:  []costing.PausePeriod{{Start: date(2024, time.April, 1)}},
			}},
		}},
	})

	orch := recalc.New(mem, quietLogger())
	result, err := orch.RecalculateWorkOrder(ctx, "wo-1", date(2024, time.April, 15))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Items[0].SubTasks[0].WorkingDays)
	assert.True(t, result.Items[0].ActualLaborCost.IsZero())
	assert.Empty(t, result.WorkLogs)
}

func TestRecalculateWorkOrder_SharedWorkerDayIsApportioned(t *testing.T) {
	// GIVEN: One worker assigned to two SubTasks of the same Item on the
	//        same single day, quantities 6 and 4
	// WHEN: Recalculating
	// THEN: The day is billed once (50) and split 30/20 by quantity

	ctx := context.Background()
	mem := store.NewMemory()
	mem.PutWorker(costing.Worker{ID: "w-1", DailyRate: costing.NewMoney(50), OrgID: "org-1"})
	mem.PutWorkOrder(costing.WorkOrder{
		ID: "wo-1", OrgID: "org-1", Status: costing.OrderInProgress, Version: 1,
		Items: []costing.WorkOrderItem{{
			ID: "item-1", WorkOrderID: "wo-1", Status: costing.TaskInProgress,
			SubTasks: []costing.SubTask{
				{
					ID: "st-1", ItemID: "item-1", Quantity: 6,
					Status: costing.TaskInProgress, WorkerID: "w-1",
					Started: dateP(2024, time.January, 8), Ended: dateP(2024, time.January, 8),
				},
				{
					ID: "st-2", ItemID: "item-1", Quantity: 4,
					Status: costing.TaskInProgress, WorkerID: "w-1",
					Started: dateP(2024, time.January, 8), Ended: dateP(2024, time.January, 8),
				},
			},
		}},
	})

	orch := recalc.New(mem, quietLogger())
	result, err := orch.RecalculateWorkOrder(ctx, "wo-1", date(2024, time.January, 12))
	require.NoError(t, err)

	item := result.Items[0]
	assert.Equal(t, "30.00", item.SubTasks[0].ActualLaborCost.String())
	assert.Equal(t, "20.00", item.SubTasks[1].ActualLaborCost.String())
	assert.Equal(t, "50.00", item.ActualLaborCost.String())

	// The split logs still sum to one daily rate for the item.
	require.Len(t, result.WorkLogs, 2)
	sum := costing.NewMoney(0)
	for _, wl := range result.WorkLogs {
		sum = sum.Add(wl.DailyRate)
	}
	assert.Equal(t, "50.00", sum.String())
}

func TestRecalculateWorkOrder_SubCentRatePersists(t *testing.T) {
	// GIVEN: Three single-day SubTasks worked at a stored rate of 50.005
	// WHEN: Recalculating
	// THEN: Every cost and WorkLog bills the cent-rounded rate, the hard
	//       invariants hold, and the order persists instead of aborting

	ctx := context.Background()
	mem := store.NewMemory()
	mem.PutWorker(costing.Worker{ID: "w-1", DailyRate: costing.MustParseMoney("50.005"), OrgID: "org-1"})
	mem.PutWorkOrder(costing.WorkOrder{
		ID: "wo-1", OrgID: "org-1", Status: costing.OrderInProgress, Version: 1,
		Items: []costing.WorkOrderItem{{
			ID: "item-1", WorkOrderID: "wo-1", Status: costing.TaskInProgress,
			SubTasks: []costing.SubTask{
				{
					ID: "st-1", ItemID: "item-1", Quantity: 1,
					Status: costing.TaskCompleted, WorkerID: "w-1",
					Started: dateP(2024, time.January, 8), Ended: dateP(2024, time.January, 8),
				},
				{
					ID: "st-2", ItemID: "item-1", Quantity: 1,
					Status: costing.TaskCompleted, WorkerID: "w-1",
					Started: dateP(2024, time.January, 9), Ended: dateP(2024, time.January, 9),
				},
				{
					ID: "st-3", ItemID: "item-1", Quantity: 1,
					Status: costing.TaskCompleted, WorkerID: "w-1",
					Started: dateP(2024, time.January, 10), Ended: dateP(2024, time.January, 10),
				},
			},
		}},
	})

	orch := recalc.New(mem, quietLogger())
	result, err := orch.RecalculateWorkOrder(ctx, "wo-1", date(2024, time.January, 12))
	require.NoError(t, err)

	item := result.Items[0]
	for j := range item.SubTasks {
		assert.Equal(t, "50.01", item.SubTasks[j].ActualLaborCost.String())
	}
	assert.Equal(t, "150.03", item.ActualLaborCost.String())
	require.Len(t, result.WorkLogs, 3)
	for _, wl := range result.WorkLogs {
		assert.Equal(t, "50.01", wl.DailyRate.String())
	}
	assert.Nil(t, reconcile.CheckItemSync(&item, result.WorkLogs, costing.CentEpsilon))
	assert.Nil(t, reconcile.CheckDistribution(&item, costing.CentEpsilon))
}

func TestRecalculateWorkOrder_ItemWithoutSubTasks(t *testing.T) {
	// An Item with no SubTasks computes directly from its own range.
	ctx := context.Background()
	mem := store.NewMemory()
	mem.PutWorker(costing.Worker{ID: "w-1", DailyRate: costing.NewMoney(80), OrgID: "org-1"})
	mem.PutWorkOrder(costing.WorkOrder{
		ID: "wo-1", OrgID: "org-1", Status: costing.OrderInProgress, Version: 1,
		Items: []costing.WorkOrderItem{{
			ID: "item-1", WorkOrderID: "wo-1", Status: costing.TaskCompleted,
			WorkerID: "w-1",
			Started:  dateP(2024, time.January, 8), Ended: dateP(2024, time.January, 9),
		}},
	})

	orch := recalc.New(mem, quietLogger())
	result, err := orch.RecalculateWorkOrder(ctx, "wo-1", date(2024, time.January, 31))
	require.NoError(t, err)

	assert.Equal(t, "160.00", result.Items[0].ActualLaborCost.String())
	require.Len(t, result.WorkLogs, 2)
	assert.Empty(t, result.WorkLogs[0].SubTaskID)
}

// =============================================================================
// FAILURE SEMANTICS
// =============================================================================

func TestRecalculateWorkOrder_MalformedState(t *testing.T) {
	// Completed item with no start date: surfaced, nothing persisted.
	ctx := context.Background()
	mem := store.NewMemory()
	mem.PutWorker(costing.Worker{ID: "w-1", DailyRate: costing.NewMoney(50), OrgID: "org-1"})
	mem.PutWorkOrder(costing.WorkOrder{
		ID: "wo-2", OrgID: "org-1", Status: costing.OrderInProgress, Version: 1,
		Items: []costing.WorkOrderItem{{
			ID: "item-2", WorkOrderID: "wo-2",
			Status: costing.TaskCompleted, WorkerID: "w-1",
		}},
	})

	orch := recalc.New(mem, quietLogger())
	_, err := orch.RecalculateWorkOrder(ctx, "wo-2", date(2024, time.June, 1))
	assert.ErrorIs(t, err, costing.ErrMalformedState)

	logs, err2 := mem.LoadWorkLogs(ctx, []costing.ItemID{"item-2"})
	require.NoError(t, err2)
	assert.Empty(t, logs)
}

func TestRecalculateWorkOrder_UnknownOrder(t *testing.T) {
	orch := recalc.New(store.NewMemory(), quietLogger())
	_, err := orch.RecalculateWorkOrder(context.Background(), "nope", date(2024, time.June, 1))
	assert.ErrorIs(t, err, costing.ErrWorkOrderNotFound)
}

// =============================================================================
// BATCH
// =============================================================================

func TestRecalculateActiveOrders_ContinuesPastFailures(t *testing.T) {
	// One malformed order never blocks the rest of the batch.
	ctx := context.Background()
	mem := store.NewMemory()
	seedOrder(mem)
	mem.PutWorkOrder(costing.WorkOrder{
		ID: "wo-2", OrgID: "org-1", Status: costing.OrderAssigned, Version: 1,
		Items: []costing.WorkOrderItem{{
			ID: "item-2", WorkOrderID: "wo-2",
			Status: costing.TaskCompleted, WorkerID: "w-1",
		}},
	})

	orch := recalc.New(mem, quietLogger())
	batch, err := orch.RecalculateActiveOrders(ctx, "org-1", date(2024, time.January, 12))
	require.NoError(t, err)

	require.Len(t, batch.Results, 1)
	assert.Equal(t, costing.WorkOrderID("wo-1"), batch.Results[0].WorkOrderID)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, costing.WorkOrderID("wo-2"), batch.Failures[0].WorkOrderID)
	assert.ErrorIs(t, batch.Failures[0].Err, costing.ErrMalformedState)
}
