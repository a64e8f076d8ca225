package costing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobelart/costing-engine/costing"
)

func TestSubTaskLabor_ReferenceWeek(t *testing.T) {
	// GIVEN: SubTask running Mon Jan 1 through Sun Jan 7 2024, holiday on
	//        Jan 1, no pauses, daily rate 50
	// WHEN: Computing labor
	// THEN: 4 working days, cost 200

	st := &costing.SubTask{
		ID:       "st-1",
		Status:   costing.TaskCompleted,
		WorkerID: "w-1",
		Started:  dateP(2024, time.January, 1),
		Ended:    dateP(2024, time.January, 7),
	}
	rates := map[costing.WorkerID]costing.Money{"w-1": costing.NewMoney(50)}
	holidays := costing.NewHolidaySet(costing.Holiday{Date: date(2024, time.January, 1)})

	result, err := costing.SubTaskLabor(st, rates, holidays, date(2024, time.December, 31))
	require.NoError(t, err)

	assert.Equal(t, 4, result.WorkingDays)
	assert.Equal(t, "200.00", result.Cost.String())
	assert.Len(t, result.Attributions, 4)
}

func TestSubTaskLabor_PausedEntireRange(t *testing.T) {
	// A SubTask paused for its whole active range accrues nothing.
	st := &costing.SubTask{
		ID:       "st-1",
		Status:   costing.TaskInProgress,
		WorkerID: "w-1",
		Started:  dateP(2024, time.April, 1),
		Paused:   true,
		Pauses:   []costing.PausePeriod{{Start: date(2024, time.April, 1)}},
	}
	rates := map[costing.WorkerID]costing.Money{"w-1": costing.NewMoney(60)}

	result, err := costing.SubTaskLabor(st, rates, nil, date(2024, time.April, 12))
	require.NoError(t, err)

	assert.Equal(t, 0, result.WorkingDays)
	assert.True(t, result.Cost.IsZero())
	assert.Empty(t, result.Attributions)
}

func TestSubTaskLabor_OpenEndedUsesAsOf(t *testing.T) {
	// In-progress SubTask with no end: range closes at asOf, not today.
	st := &costing.SubTask{
		ID:       "st-1",
		Status:   costing.TaskInProgress,
		WorkerID: "w-1",
		Started:  dateP(2024, time.January, 8), // Monday
	}
	rates := map[costing.WorkerID]costing.Money{"w-1": costing.NewMoney(50)}

	result, err := costing.SubTaskLabor(st, rates, nil, date(2024, time.January, 12)) // Friday
	require.NoError(t, err)
	assert.Equal(t, 5, result.WorkingDays)
	assert.Equal(t, "250.00", result.Cost.String())
}

func TestSubTaskLabor_HelperBilledAtOwnRate(t *testing.T) {
	// GIVEN: Primary works Mon-Fri at 50; helper joins Wed-Fri at 40
	// WHEN: Computing labor
	// THEN: 5*50 + 3*40 = 370, with per-day attributions for both

	st := &costing.SubTask{
		ID:       "st-1",
		Status:   costing.TaskCompleted,
		WorkerID: "w-1",
		Started:  dateP(2024, time.January, 8),
		Ended:    dateP(2024, time.January, 12),
		Helpers: []costing.HelperAssignment{
			{WorkerID: "w-2", Started: dateP(2024, time.January, 10)},
		},
	}
	rates := map[costing.WorkerID]costing.Money{
		"w-1": costing.NewMoney(50),
		"w-2": costing.NewMoney(40),
	}

	result, err := costing.SubTaskLabor(st, rates, nil, date(2024, time.June, 30))
	require.NoError(t, err)

	assert.Equal(t, 5, result.WorkingDays) // primary only
	assert.Equal(t, "370.00", result.Cost.String())
	assert.Len(t, result.Attributions, 8)
}

func TestSubTaskLabor_SubCentRateBillsInWholeCents(t *testing.T) {
	// A stored rate with sub-cent precision bills at its cent-rounded
	// value; attributions and the rolled-up cost stay on the same grid.
	st := &costing.SubTask{
		ID:       "st-1",
		Status:   costing.TaskCompleted,
		WorkerID: "w-1",
		Started:  dateP(2024, time.January, 8),
		Ended:    dateP(2024, time.January, 10),
	}
	rates := map[costing.WorkerID]costing.Money{"w-1": costing.MustParseMoney("50.005")}

	result, err := costing.SubTaskLabor(st, rates, nil, date(2024, time.June, 30))
	require.NoError(t, err)

	assert.Equal(t, "150.03", result.Cost.String())
	sum := costing.NewMoney(0)
	for _, attr := range result.Attributions {
		assert.Equal(t, "50.01", attr.Rate.String())
		sum = sum.Add(attr.Rate)
	}
	assert.True(t, sum.Equal(result.Cost))
}

func TestSubTaskLabor_MalformedState(t *testing.T) {
	// Completed status with no start date is upstream data corruption,
	// surfaced, never auto-repaired.
	st := &costing.SubTask{ID: "st-1", Status: costing.TaskCompleted, WorkerID: "w-1"}
	rates := map[costing.WorkerID]costing.Money{"w-1": costing.NewMoney(50)}

	_, err := costing.SubTaskLabor(st, rates, nil, date(2024, time.June, 30))
	assert.ErrorIs(t, err, costing.ErrMalformedState)
}

func TestSubTaskLabor_NotStartedYet(t *testing.T) {
	st := &costing.SubTask{ID: "st-1", Status: costing.TaskPending, WorkerID: "w-1"}
	rates := map[costing.WorkerID]costing.Money{"w-1": costing.NewMoney(50)}

	result, err := costing.SubTaskLabor(st, rates, nil, date(2024, time.June, 30))
	require.NoError(t, err)
	assert.Equal(t, 0, result.WorkingDays)
	assert.True(t, result.Cost.IsZero())
}

func TestItemProfit_NegativeNotClamped(t *testing.T) {
	item := &costing.WorkOrderItem{
		ProductValue:    costing.NewMoney(1000),
		MaterialCost:    costing.NewMoney(600),
		TransportShare:  costing.NewMoney(100),
		ServicesTotal:   costing.NewMoney(150),
		ActualLaborCost: costing.NewMoney(400),
	}

	profit := costing.ItemProfit(item)
	assert.Equal(t, "-250.00", profit.String())
}

func TestProfitMargin_ZeroProductValue(t *testing.T) {
	// Margin must report 0, not NaN, when there is no selling price.
	item := &costing.WorkOrderItem{
		MaterialCost: costing.NewMoney(50),
	}
	assert.True(t, costing.ProfitMargin(item).IsZero())
}

func TestProfitMargin_Percentage(t *testing.T) {
	item := &costing.WorkOrderItem{
		ProductValue:    costing.NewMoney(1000),
		MaterialCost:    costing.NewMoney(400),
		ActualLaborCost: costing.NewMoney(350),
	}
	// profit 250 on 1000 -> 25%
	assert.Equal(t, "25", costing.ProfitMargin(item).String())
}

func TestItemLaborFromSubTasks(t *testing.T) {
	item := &costing.WorkOrderItem{
		SubTasks: []costing.SubTask{
			{ActualLaborCost: costing.NewMoney(120.50)},
			{ActualLaborCost: costing.NewMoney(79.50)},
		},
	}
	assert.Equal(t, "200.00", costing.ItemLaborFromSubTasks(item).String())
}
