package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobelart/costing-engine/costing"
	"github.com/mobelart/costing-engine/costing/store"
)

func TestMemory_SaveRecomputedState_VersionCheck(t *testing.T) {
	// GIVEN: An order at version 2
	// WHEN: A recompute based on version 1 tries to commit
	// THEN: It aborts with ErrStaleRecalculation and writes nothing

	ctx := context.Background()
	mem := store.NewMemory()
	mem.PutWorkOrder(costing.WorkOrder{
		ID: "wo-1", OrgID: "org-1", Status: costing.OrderInProgress, Version: 2,
		Items: []costing.WorkOrderItem{{ID: "item-1", WorkOrderID: "wo-1"}},
	})

	stale := costing.RecomputedState{
		WorkOrderID: "wo-1",
		Version:     1,
		Items: []costing.WorkOrderItem{{
			ID: "item-1", WorkOrderID: "wo-1",
			ActualLaborCost: costing.NewMoney(999),
		}},
	}
	err := mem.SaveRecomputedState(ctx, stale)
	assert.ErrorIs(t, err, costing.ErrStaleRecalculation)

	items, err := mem.LoadItems(ctx, "wo-1")
	require.NoError(t, err)
	assert.True(t, items[0].ActualLaborCost.IsZero())
}

func TestMemory_SaveRecomputedState_BumpsVersion(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.PutWorkOrder(costing.WorkOrder{
		ID: "wo-1", OrgID: "org-1", Status: costing.OrderInProgress, Version: 1,
		Items: []costing.WorkOrderItem{{ID: "item-1", WorkOrderID: "wo-1"}},
	})

	state := costing.RecomputedState{WorkOrderID: "wo-1", Version: 1}
	require.NoError(t, mem.SaveRecomputedState(ctx, state))

	// The same recompute cannot commit twice.
	assert.ErrorIs(t, mem.SaveRecomputedState(ctx, state), costing.ErrStaleRecalculation)

	wo, err := mem.LoadWorkOrder(ctx, "wo-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), wo.Version)
}

func TestMemory_ReadsAreDeepCopies(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.PutWorkOrder(costing.WorkOrder{
		ID: "wo-1", OrgID: "org-1", Status: costing.OrderInProgress, Version: 1,
		Items: []costing.WorkOrderItem{{
			ID: "item-1", WorkOrderID: "wo-1",
			SubTasks: []costing.SubTask{{ID: "st-1", ItemID: "item-1"}},
		}},
	})

	items, err := mem.LoadItems(ctx, "wo-1")
	require.NoError(t, err)
	items[0].SubTasks[0].ActualLaborCost = costing.NewMoney(123)

	again, err := mem.LoadItems(ctx, "wo-1")
	require.NoError(t, err)
	assert.True(t, again[0].SubTasks[0].ActualLaborCost.IsZero(),
		"mutating a loaded item must not leak into the store")
}

func TestMemory_LoadHolidays_GlobalAndOrgScoped(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveHoliday(ctx, costing.Holiday{
		ID: "h-1", Date: costing.NewDate(2024, time.January, 1), Name: "Nova godina",
	}))
	require.NoError(t, mem.SaveHoliday(ctx, costing.Holiday{
		ID: "h-2", Date: costing.NewDate(2024, time.May, 1), Name: "Praznik rada", OrgID: "org-1",
	}))
	require.NoError(t, mem.SaveHoliday(ctx, costing.Holiday{
		ID: "h-3", Date: costing.NewDate(2024, time.July, 4), OrgID: "org-2",
	}))

	holidays, err := mem.LoadHolidays(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, holidays, 2) // global + own, never another org's
}
