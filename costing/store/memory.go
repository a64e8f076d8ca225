// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mobelart/costing-engine/costing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	orders     map[costing.WorkOrderID]*costing.WorkOrder
	workers    map[costing.WorkerID]costing.Worker
	holidays   []costing.Holiday
	attendance map[costing.AttendanceKey]costing.WorkerAttendance
	workLogs   map[costing.ItemID][]costing.WorkLog
}

func NewMemory() *Memory {
	return &Memory{
		orders:     make(map[costing.WorkOrderID]*costing.WorkOrder),
		workers:    make(map[costing.WorkerID]costing.Worker),
		attendance: make(map[costing.AttendanceKey]costing.WorkerAttendance),
		workLogs:   make(map[costing.ItemID][]costing.WorkLog),
	}
}

// =============================================================================
// SEEDING (tests and dev fixtures)
// =============================================================================

func (m *Memory) PutWorkOrder(wo costing.WorkOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := cloneOrder(&wo)
	m.orders[wo.ID] = &clone
}

func (m *Memory) PutWorker(w costing.Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.ID] = w
}

func (m *Memory) PutAttendance(a costing.WorkerAttendance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[a.Key()] = a
}

func (m *Memory) PutWorkLog(wl costing.WorkLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workLogs[wl.ItemID] = append(m.workLogs[wl.ItemID], wl)
}

// =============================================================================
// READS
// =============================================================================

func (m *Memory) LoadWorkOrder(_ context.Context, id costing.WorkOrderID) (*costing.WorkOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wo, ok := m.orders[id]
	if !ok {
		return nil, costing.ErrWorkOrderNotFound
	}
	clone := cloneOrder(wo)
	clone.Items = nil
	return &clone, nil
}

func (m *Memory) LoadItems(_ context.Context, id costing.WorkOrderID) ([]costing.WorkOrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wo, ok := m.orders[id]
	if !ok {
		return nil, costing.ErrWorkOrderNotFound
	}
	clone := cloneOrder(wo)
	return clone.Items, nil
}

func (m *Memory) LoadActiveWorkOrders(_ context.Context, org costing.OrgID) ([]*costing.WorkOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*costing.WorkOrder
	for _, wo := range m.orders {
		if wo.OrgID == org && wo.Status.IsActive() {
			clone := cloneOrder(wo)
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(a, b int) bool { return result[a].ID < result[b].ID })
	return result, nil
}

func (m *Memory) LoadWorkLogs(_ context.Context, itemIDs []costing.ItemID) ([]costing.WorkLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []costing.WorkLog
	for _, id := range itemIDs {
		result = append(result, m.workLogs[id]...)
	}
	return result, nil
}

func (m *Memory) LoadAttendance(_ context.Context, workerIDs []costing.WorkerID, from, to costing.Date) ([]costing.WorkerAttendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[costing.WorkerID]bool, len(workerIDs))
	for _, id := range workerIDs {
		wanted[id] = true
	}

	var result []costing.WorkerAttendance
	for _, a := range m.attendance {
		if wanted[a.WorkerID] && a.Date.AfterOrEqual(from) && a.Date.BeforeOrEqual(to) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		if !result[a].Date.Equal(result[b].Date) {
			return result[a].Date.Before(result[b].Date)
		}
		return result[a].WorkerID < result[b].WorkerID
	})
	return result, nil
}

func (m *Memory) LoadHolidays(_ context.Context, org costing.OrgID) ([]costing.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []costing.Holiday
	for _, h := range m.holidays {
		if h.OrgID == "" || h.OrgID == org {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *Memory) LoadWorker(_ context.Context, id costing.WorkerID) (*costing.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.workers[id]
	if !ok {
		return nil, costing.ErrWorkerNotFound
	}
	return &w, nil
}

func (m *Memory) LoadWorkers(_ context.Context, ids []costing.WorkerID) (map[costing.WorkerID]costing.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[costing.WorkerID]costing.Worker, len(ids))
	for _, id := range ids {
		if w, ok := m.workers[id]; ok {
			result[id] = w
		}
	}
	return result, nil
}

// =============================================================================
// WRITES
// =============================================================================

// SaveRecomputedState commits a recompute atomically: version check first,
// then Items and the full replacement WorkLog set, then a version bump.
func (m *Memory) SaveRecomputedState(_ context.Context, state costing.RecomputedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wo, ok := m.orders[state.WorkOrderID]
	if !ok {
		return costing.ErrWorkOrderNotFound
	}
	if wo.Version != state.Version {
		return costing.ErrStaleRecalculation
	}

	wo.Items = cloneItems(state.Items)
	wo.Version++

	for i := range wo.Items {
		delete(m.workLogs, wo.Items[i].ID)
	}
	for _, wl := range state.WorkLogs {
		m.workLogs[wl.ItemID] = append(m.workLogs[wl.ItemID], wl)
	}
	return nil
}

func (m *Memory) UpsertAttendance(_ context.Context, entries []costing.AttendanceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		a := costing.WorkerAttendance{
			WorkerID: e.WorkerID,
			Date:     e.Date,
			Status:   e.Status,
			OrgID:    e.OrgID,
		}
		m.attendance[a.Key()] = a
	}
	return nil
}

func (m *Memory) SaveHoliday(_ context.Context, h costing.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays = append(m.holidays, h)
	return nil
}

// =============================================================================
// DEEP COPIES - Readers must never share slices with stored state
// =============================================================================

func cloneOrder(wo *costing.WorkOrder) costing.WorkOrder {
	clone := *wo
	clone.Steps = append([]string(nil), wo.Steps...)
	clone.Items = cloneItems(wo.Items)
	return clone
}

func cloneItems(items []costing.WorkOrderItem) []costing.WorkOrderItem {
	if items == nil {
		return nil
	}
	out := make([]costing.WorkOrderItem, len(items))
	for i := range items {
		out[i] = items[i]
		out[i].Pauses = clonePauses(items[i].Pauses)
		out[i].Started = cloneDate(items[i].Started)
		out[i].Ended = cloneDate(items[i].Ended)
		out[i].SubTasks = make([]costing.SubTask, len(items[i].SubTasks))
		for j := range items[i].SubTasks {
			st := items[i].SubTasks[j]
			st.Pauses = clonePauses(st.Pauses)
			st.Started = cloneDate(st.Started)
			st.Ended = cloneDate(st.Ended)
			st.Helpers = append([]costing.HelperAssignment(nil), st.Helpers...)
			out[i].SubTasks[j] = st
		}
	}
	return out
}

func clonePauses(pauses []costing.PausePeriod) []costing.PausePeriod {
	if pauses == nil {
		return nil
	}
	out := make([]costing.PausePeriod, len(pauses))
	for i, p := range pauses {
		out[i] = costing.PausePeriod{Start: p.Start, End: cloneDate(p.End)}
	}
	return out
}

func cloneDate(d *costing.Date) *costing.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
