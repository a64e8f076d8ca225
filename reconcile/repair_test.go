package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobelart/costing-engine/costing"
	"github.com/mobelart/costing-engine/costing/store"
	"github.com/mobelart/costing-engine/reconcile"
)

func TestRepairer_BatchWritesThenOneRecompute(t *testing.T) {
	// GIVEN: Three missing days for one order
	// WHEN: Repairing them as a batch
	// THEN: All three records are written and the order recomputes ONCE

	ctx := context.Background()
	mem := store.NewMemory()

	recomputes := 0
	repairer := reconcile.NewRepairer(mem, func(ctx context.Context, id costing.WorkOrderID, asOf costing.Date) error {
		recomputes++
		assert.Equal(t, costing.WorkOrderID("wo-1"), id)
		return nil
	})

	entries := []costing.AttendanceEntry{
		{WorkerID: "w-1", Date: date(2024, time.January, 8), Status: costing.AttendancePresent, OrgID: "org-1"},
		{WorkerID: "w-1", Date: date(2024, time.January, 9), Status: costing.AttendancePresent, OrgID: "org-1"},
		{WorkerID: "w-1", Date: date(2024, time.January, 10), Status: costing.AttendanceField, OrgID: "org-1"},
	}
	err := repairer.MarkAttendanceBatch(ctx, "wo-1", entries, reconcile.MarkOptions{}, date(2024, time.January, 12))
	require.NoError(t, err)
	assert.Equal(t, 1, recomputes)

	stored, err := mem.LoadAttendance(ctx, []costing.WorkerID{"w-1"},
		date(2024, time.January, 1), date(2024, time.January, 31))
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestRepairer_SkipRecalculation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	recomputes := 0
	repairer := reconcile.NewRepairer(mem, func(context.Context, costing.WorkOrderID, costing.Date) error {
		recomputes++
		return nil
	})

	entry := costing.AttendanceEntry{
		WorkerID: "w-1", Date: date(2024, time.February, 5),
		Status: costing.AttendancePresent, OrgID: "org-1",
	}
	err := repairer.MarkAttendance(ctx, "wo-1", entry,
		reconcile.MarkOptions{SkipRecalculation: true}, date(2024, time.February, 5))
	require.NoError(t, err)
	assert.Zero(t, recomputes)
}

func TestRepairer_RejectsInvalidStatus(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	repairer := reconcile.NewRepairer(mem, nil)

	entry := costing.AttendanceEntry{
		WorkerID: "w-1", Date: date(2024, time.February, 5), Status: "vacation",
	}
	err := repairer.MarkAttendance(ctx, "wo-1", entry, reconcile.MarkOptions{}, date(2024, time.February, 5))
	assert.ErrorIs(t, err, reconcile.ErrInvalidAttendanceStatus)

	// Nothing was written.
	stored, err2 := mem.LoadAttendance(ctx, []costing.WorkerID{"w-1"},
		date(2024, time.February, 1), date(2024, time.February, 28))
	require.NoError(t, err2)
	assert.Empty(t, stored)
}

func TestRepairer_UpsertReplacesSameDay(t *testing.T) {
	// One record per (worker, date): re-marking a day replaces the status.
	ctx := context.Background()
	mem := store.NewMemory()
	repairer := reconcile.NewRepairer(mem, nil)

	day := date(2024, time.March, 4)
	for _, status := range []costing.AttendanceStatus{costing.AttendanceAbsent, costing.AttendancePresent} {
		entry := costing.AttendanceEntry{WorkerID: "w-1", Date: day, Status: status, OrgID: "org-1"}
		require.NoError(t, repairer.MarkAttendance(ctx, "wo-1", entry,
			reconcile.MarkOptions{SkipRecalculation: true}, day))
	}

	stored, err := mem.LoadAttendance(ctx, []costing.WorkerID{"w-1"}, day, day)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, costing.AttendancePresent, stored[0].Status)
}
