/*
store.go - Persistence interface for the costing engine

PURPOSE:
  The injected boundary between pure computation and storage. The engine
  never touches a concrete database; it receives this interface and an
  explicit organization scope on every call.

CONTRACT:
  - Reads are independent and safe to run concurrently.
  - SaveRecomputedState is atomic per WorkOrder: all Items, SubTasks, and
    the full replacement WorkLog set commit together or not at all. The
    expected version must match the stored one (optimistic concurrency);
    a mismatch returns ErrStaleRecalculation and writes nothing.
  - UpsertAttendance enforces one record per (worker, date).

IMPLEMENTATIONS:
  - costing/store: in-memory, for tests and development
  - store/sqlite:  production SQLite
*/
package costing

import "context"

// RecomputedState is one WorkOrder's full recompute output, persisted
// atomically. WorkLogs replace every prior log for the order's Items.
type RecomputedState struct {
	WorkOrderID WorkOrderID
	// Version the recompute was based on. Persistence fails with
	// ErrStaleRecalculation if the stored version has moved on.
	Version  int64
	Items    []WorkOrderItem
	WorkLogs []WorkLog
}

// AttendanceEntry is one (worker, date, status) assignment from the
// repair workflow or direct HR input.
type AttendanceEntry struct {
	WorkerID WorkerID
	Date     Date
	Status   AttendanceStatus
	OrgID    OrgID
}

// Store is the persistence boundary the engine is computed against.
type Store interface {
	// LoadWorkOrder returns the order without its Items.
	// Returns ErrWorkOrderNotFound if absent.
	LoadWorkOrder(ctx context.Context, id WorkOrderID) (*WorkOrder, error)

	// LoadItems returns the order's Items with SubTasks populated.
	LoadItems(ctx context.Context, id WorkOrderID) ([]WorkOrderItem, error)

	// LoadActiveWorkOrders returns orders in an active status for the
	// organization, Items included.
	LoadActiveWorkOrders(ctx context.Context, org OrgID) ([]*WorkOrder, error)

	// LoadWorkLogs returns all logs referencing the given Items.
	LoadWorkLogs(ctx context.Context, itemIDs []ItemID) ([]WorkLog, error)

	// LoadAttendance returns attendance records for the workers in
	// [from, to] inclusive.
	LoadAttendance(ctx context.Context, workerIDs []WorkerID, from, to Date) ([]WorkerAttendance, error)

	// LoadHolidays returns global holidays plus the organization's own.
	LoadHolidays(ctx context.Context, org OrgID) ([]Holiday, error)

	// LoadWorker returns ErrWorkerNotFound if absent.
	LoadWorker(ctx context.Context, id WorkerID) (*Worker, error)

	// LoadWorkers resolves many workers at once; missing IDs are simply
	// absent from the result map.
	LoadWorkers(ctx context.Context, ids []WorkerID) (map[WorkerID]Worker, error)

	// SaveRecomputedState persists a recompute atomically per WorkOrder
	// and bumps the order's version.
	SaveRecomputedState(ctx context.Context, state RecomputedState) error

	// UpsertAttendance writes entries, replacing any existing record for
	// the same (worker, date).
	UpsertAttendance(ctx context.Context, entries []AttendanceEntry) error

	// SaveHoliday adds a holiday to the calendar.
	SaveHoliday(ctx context.Context, h Holiday) error
}
