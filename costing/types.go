/*
types.go - Domain model for production tracking

PURPOSE:
  The WorkOrder -> Item -> SubTask hierarchy plus the two independent
  records of labor truth: per-item WorkLogs and per-worker daily
  attendance. Derived fields (WorkingDays, ActualLaborCost) are only ever
  written by the recalculation orchestrator, never by user input.

OWNERSHIP:
  WorkOrder owns its Items; Items own their SubTasks and PausePeriods.
  Workers are referenced, never owned, by SubTasks, WorkLogs, and
  attendance records.

SEE ALSO:
  - costmodel.go: How the derived fields are computed
  - store.go: Persistence boundary for these types
*/
package costing

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	OrgID       string
	WorkOrderID string
	ItemID      string
	SubTaskID   string
	WorkerID    string
	WorkLogID   string
)

// =============================================================================
// STATUS SETS
// =============================================================================

type WorkOrderStatus string

const (
	OrderDraft      WorkOrderStatus = "draft"
	OrderAssigned   WorkOrderStatus = "assigned"
	OrderInProgress WorkOrderStatus = "in_progress"
	OrderCompleted  WorkOrderStatus = "completed"
	OrderCancelled  WorkOrderStatus = "cancelled"
)

// IsActive reports whether the order still accrues labor and should be
// included in attendance scans.
func (s WorkOrderStatus) IsActive() bool {
	return s == OrderAssigned || s == OrderInProgress
}

// TaskStatus is shared by Items and SubTasks.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// RequiresStart reports whether this status implies Started must be set.
// A Completed or InProgress task without a start date is malformed state.
func (s TaskStatus) RequiresStart() bool {
	return s == TaskInProgress || s == TaskCompleted
}

// AttendanceStatus is the daily presence record for a worker.
// Values follow the HR vocabulary of the source system.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "prisutan"  // present at the workshop
	AttendanceField   AttendanceStatus = "teren"     // working off-site
	AttendanceAbsent  AttendanceStatus = "odsutan"   // unexcused absence
	AttendanceSick    AttendanceStatus = "bolovanje" // sick leave
	AttendanceLeave   AttendanceStatus = "odmor"     // vacation
)

// IsBillable reports whether the worker was available for production work.
func (s AttendanceStatus) IsBillable() bool {
	return s == AttendancePresent || s == AttendanceField
}

func ValidAttendanceStatus(s AttendanceStatus) bool {
	switch s {
	case AttendancePresent, AttendanceField, AttendanceAbsent, AttendanceSick, AttendanceLeave:
		return true
	}
	return false
}

// =============================================================================
// PAUSE PERIODS
// =============================================================================

// PausePeriod is a date interval during which its owning Item or SubTask
// accrues no working days and no cost. End is nil while the entity is
// still paused; an open period extends through the caller's as-of date.
type PausePeriod struct {
	Start Date
	End   *Date
}

// Contains reports whether d falls inside the period, closing an open
// period at asOf.
func (p PausePeriod) Contains(d Date, asOf Date) bool {
	if d.Before(p.Start) {
		return false
	}
	end := asOf
	if p.End != nil {
		end = *p.End
	}
	return d.BeforeOrEqual(end)
}

// =============================================================================
// WORKERS, HOLIDAYS, ATTENDANCE, WORK LOGS
// =============================================================================

type Worker struct {
	ID        WorkerID
	Name      string
	DailyRate Money
	OrgID     OrgID
}

// Holiday is a date globally excluded from working-day counts regardless
// of weekday. OrgID empty means the holiday applies to every organization.
type Holiday struct {
	ID    string
	Date  Date
	Name  string
	OrgID OrgID
}

// WorkerAttendance is the source of truth for "was this worker available
// on this date". One record per worker per date.
type WorkerAttendance struct {
	WorkerID WorkerID
	Date     Date
	Status   AttendanceStatus
	OrgID    OrgID
}

// AttendanceKey identifies the unique (worker, date) slot.
type AttendanceKey struct {
	WorkerID WorkerID
	Date     string
}

func (a WorkerAttendance) Key() AttendanceKey {
	return AttendanceKey{WorkerID: a.WorkerID, Date: a.Date.String()}
}

// WorkLog is one recorded unit of billed labor: one worker, one day, one
// rate, against one Item. WorkLogs are immutable once written; the
// orchestrator replaces an entity's full set on every recompute.
type WorkLog struct {
	ID         WorkLogID
	Date       Date
	WorkerID   WorkerID
	WorkerName string
	DailyRate  Money
	ItemID     ItemID
	SubTaskID  SubTaskID // empty when logged directly against an Item
	OrgID      OrgID
}

// =============================================================================
// WORK ORDER HIERARCHY
// =============================================================================

// HelperAssignment is an additional worker on a SubTask, billed at their
// own rate over their own day range. Nil Started/Ended inherit the
// SubTask's range.
type HelperAssignment struct {
	WorkerID WorkerID
	Started  *Date
	Ended    *Date
}

// SubTask is a worker-assignable slice of an Item's production quantity.
// WorkingDays and ActualLaborCost are derived, written only by recompute.
type SubTask struct {
	ID       SubTaskID
	ItemID   ItemID
	Process  string // production step name this slice belongs to
	Quantity int    // share of the parent Item's quantity, positive
	Status   TaskStatus
	Paused   bool
	Pauses   []PausePeriod
	WorkerID WorkerID // primary worker
	Helpers  []HelperAssignment
	Started  *Date
	Ended    *Date

	// Derived
	WorkingDays     int
	ActualLaborCost Money
}

// WorkOrderItem is one produced product line within a WorkOrder.
//
// INVARIANT: if SubTasks is non-empty, ActualLaborCost equals the sum of
// SubTask.ActualLaborCost within CentEpsilon after every recompute.
type WorkOrderItem struct {
	ID          ItemID
	WorkOrderID WorkOrderID
	ProductID   string
	ProductName string
	Quantity    int
	Status      TaskStatus
	Started     *Date
	Ended       *Date
	Paused      bool
	Pauses      []PausePeriod
	WorkerID    WorkerID // primary worker when the Item has no SubTasks
	SubTasks    []SubTask

	// Money fields. ActualLaborCost is derived, never hand-edited.
	ProductValue    Money
	MaterialCost    Money
	TransportShare  Money
	ServicesTotal   Money
	ActualLaborCost Money
}

// WorkOrder is a production batch grouping one or more Items.
// Version supports optimistic concurrency on recompute persistence.
type WorkOrder struct {
	ID        WorkOrderID
	Number    string
	OrgID     OrgID
	Status    WorkOrderStatus
	CreatedAt Date
	DueDate   Date
	Steps     []string // ordered production step names
	Items     []WorkOrderItem
	Version   int64
}

// WorkerIDs collects every worker referenced anywhere in the order,
// deduplicated, in first-appearance order.
func (wo *WorkOrder) WorkerIDs() []WorkerID {
	seen := make(map[WorkerID]bool)
	var ids []WorkerID
	add := func(id WorkerID) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for i := range wo.Items {
		add(wo.Items[i].WorkerID)
		for j := range wo.Items[i].SubTasks {
			st := &wo.Items[i].SubTasks[j]
			add(st.WorkerID)
			for _, h := range st.Helpers {
				add(h.WorkerID)
			}
		}
	}
	return ids
}

// ItemIDs returns the IDs of all Items in the order.
func (wo *WorkOrder) ItemIDs() []ItemID {
	ids := make([]ItemID, 0, len(wo.Items))
	for i := range wo.Items {
		ids = append(ids, wo.Items[i].ID)
	}
	return ids
}

// DateSpan returns the earliest start and latest end across the order's
// Items and SubTasks, closing open ends at asOf. ok is false when nothing
// has started yet.
func (wo *WorkOrder) DateSpan(asOf Date) (from, to Date, ok bool) {
	grow := func(start *Date, end *Date) {
		if start == nil {
			return
		}
		e := asOf
		if end != nil {
			e = *end
		}
		if !ok {
			from, to, ok = *start, e, true
			return
		}
		from = from.Min(*start)
		to = to.Max(e)
	}
	for i := range wo.Items {
		it := &wo.Items[i]
		grow(it.Started, it.Ended)
		for j := range it.SubTasks {
			grow(it.SubTasks[j].Started, it.SubTasks[j].Ended)
		}
	}
	return from, to, ok
}
