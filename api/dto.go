/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Wire representations of the domain types. Money travels as decimal
  strings ("370.00"), dates as "2006-01-02". Domain structs never carry
  JSON tags; the mapping lives here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Handler implementations using these types
*/
package api

import (
	"github.com/mobelart/costing-engine/costing"
	"github.com/mobelart/costing-engine/recalc"
	"github.com/mobelart/costing-engine/reconcile"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// MarkAttendanceRequest marks one worker-day.
type MarkAttendanceRequest struct {
	WorkOrderID       string `json:"work_order_id"`
	WorkerID          string `json:"worker_id"`
	Date              string `json:"date"`
	Status            string `json:"status"`
	OrgID             string `json:"org_id"`
	SkipRecalculation bool   `json:"skip_recalculation,omitempty"`
}

// BatchAttendanceRequest repairs many worker-days of one order with a
// single deferred recompute.
type BatchAttendanceRequest struct {
	WorkOrderID       string                 `json:"work_order_id"`
	Entries           []BatchAttendanceEntry `json:"entries"`
	SkipRecalculation bool                   `json:"skip_recalculation,omitempty"`
}

type BatchAttendanceEntry struct {
	WorkerID string `json:"worker_id"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	OrgID    string `json:"org_id"`
}

// CreateHolidayRequest adds a calendar holiday. Empty org_id makes the
// holiday global.
type CreateHolidayRequest struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Name  string `json:"name"`
	OrgID string `json:"org_id,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type IssueDTO struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Advisory bool   `json:"advisory"`
	ItemID   string `json:"item_id,omitempty"`
	WorkerID string `json:"worker_id,omitempty"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Diff     string `json:"diff"`
	Message  string `json:"message"`
}

type MissingEntryDTO struct {
	OrgID       string `json:"org_id"`
	WorkOrderID string `json:"work_order_id"`
	ItemID      string `json:"item_id"`
	SubTaskID   string `json:"sub_task_id,omitempty"`
	WorkerID    string `json:"worker_id"`
	WorkerName  string `json:"worker_name,omitempty"`
	Date        string `json:"date"`
}

type ReportDTO struct {
	WorkOrderID string            `json:"work_order_id"`
	AsOf        string            `json:"as_of"`
	Consistent  bool              `json:"consistent"`
	Issues      []IssueDTO        `json:"issues"`
	Missing     []MissingEntryDTO `json:"missing_attendance"`
}

type WorkLogDTO struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	WorkerID   string `json:"worker_id"`
	WorkerName string `json:"worker_name,omitempty"`
	DailyRate  string `json:"daily_rate"`
	ItemID     string `json:"item_id"`
	SubTaskID  string `json:"sub_task_id,omitempty"`
}

type SubTaskDTO struct {
	ID              string  `json:"id"`
	Process         string  `json:"process,omitempty"`
	Quantity        int     `json:"quantity"`
	Status          string  `json:"status"`
	WorkerID        string  `json:"worker_id,omitempty"`
	Started         *string `json:"started,omitempty"`
	Ended           *string `json:"ended,omitempty"`
	Paused          bool    `json:"paused"`
	WorkingDays     int     `json:"working_days"`
	ActualLaborCost string  `json:"actual_labor_cost"`
}

type ItemDTO struct {
	ID              string       `json:"id"`
	ProductID       string       `json:"product_id,omitempty"`
	ProductName     string       `json:"product_name,omitempty"`
	Quantity        int          `json:"quantity"`
	Status          string       `json:"status"`
	Started         *string      `json:"started,omitempty"`
	Ended           *string      `json:"ended,omitempty"`
	Paused          bool         `json:"paused"`
	ProductValue    string       `json:"product_value"`
	MaterialCost    string       `json:"material_cost"`
	TransportShare  string       `json:"transport_share"`
	ServicesTotal   string       `json:"services_total"`
	ActualLaborCost string       `json:"actual_labor_cost"`
	Profit          string       `json:"profit"`
	ProfitMargin    string       `json:"profit_margin"`
	SubTasks        []SubTaskDTO `json:"sub_tasks,omitempty"`
}

type WorkOrderDTO struct {
	ID      string    `json:"id"`
	Number  string    `json:"number"`
	OrgID   string    `json:"org_id"`
	Status  string    `json:"status"`
	DueDate string    `json:"due_date,omitempty"`
	Version int64     `json:"version"`
	Items   []ItemDTO `json:"items"`
}

type RecalcResultDTO struct {
	WorkOrderID string            `json:"work_order_id"`
	Items       []ItemDTO         `json:"items"`
	WorkLogs    []WorkLogDTO      `json:"work_logs"`
	Missing     []MissingEntryDTO `json:"missing_attendance"`
}

type HolidayDTO struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Name  string `json:"name,omitempty"`
	OrgID string `json:"org_id,omitempty"`
}

// EarningsDTO is the advisory earnings cross-check for one worker over a
// date range.
type EarningsDTO struct {
	WorkerID     string    `json:"worker_id"`
	WorkerName   string    `json:"worker_name,omitempty"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	BillableDays int       `json:"billable_days"`
	Expected     string    `json:"expected"`
	Logged       string    `json:"logged"`
	Issue        *IssueDTO `json:"issue,omitempty"`
}

// =============================================================================
// DOMAIN -> DTO MAPPING
// =============================================================================

func datePtr(d *costing.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func toIssueDTO(issue reconcile.Issue) IssueDTO {
	return IssueDTO{
		Kind:     string(issue.Kind),
		Severity: string(issue.Severity),
		Advisory: issue.Advisory,
		ItemID:   string(issue.ItemID),
		WorkerID: string(issue.WorkerID),
		Expected: issue.Expected.String(),
		Actual:   issue.Actual.String(),
		Diff:     issue.Diff.String(),
		Message:  issue.Message,
	}
}

func toMissingDTOs(entries []reconcile.MissingEntry) []MissingEntryDTO {
	dtos := make([]MissingEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = MissingEntryDTO{
			OrgID:       string(e.OrgID),
			WorkOrderID: string(e.WorkOrderID),
			ItemID:      string(e.ItemID),
			SubTaskID:   string(e.SubTaskID),
			WorkerID:    string(e.WorkerID),
			WorkerName:  e.WorkerName,
			Date:        e.Date.String(),
		}
	}
	return dtos
}

func toReportDTO(report *reconcile.Report) ReportDTO {
	dto := ReportDTO{
		WorkOrderID: string(report.WorkOrderID),
		AsOf:        report.AsOf.String(),
		Consistent:  report.Consistent(),
		Issues:      []IssueDTO{},
		Missing:     toMissingDTOs(report.Missing),
	}
	for _, issue := range report.Issues {
		dto.Issues = append(dto.Issues, toIssueDTO(issue))
	}
	return dto
}

func toItemDTO(item *costing.WorkOrderItem) ItemDTO {
	dto := ItemDTO{
		ID:              string(item.ID),
		ProductID:       item.ProductID,
		ProductName:     item.ProductName,
		Quantity:        item.Quantity,
		Status:          string(item.Status),
		Started:         datePtr(item.Started),
		Ended:           datePtr(item.Ended),
		Paused:          item.Paused,
		ProductValue:    item.ProductValue.String(),
		MaterialCost:    item.MaterialCost.String(),
		TransportShare:  item.TransportShare.String(),
		ServicesTotal:   item.ServicesTotal.String(),
		ActualLaborCost: item.ActualLaborCost.String(),
		Profit:          costing.ItemProfit(item).String(),
		ProfitMargin:    costing.ProfitMargin(item).StringFixed(4),
	}
	for i := range item.SubTasks {
		st := &item.SubTasks[i]
		dto.SubTasks = append(dto.SubTasks, SubTaskDTO{
			ID:              string(st.ID),
			Process:         st.Process,
			Quantity:        st.Quantity,
			Status:          string(st.Status),
			WorkerID:        string(st.WorkerID),
			Started:         datePtr(st.Started),
			Ended:           datePtr(st.Ended),
			Paused:          st.Paused,
			WorkingDays:     st.WorkingDays,
			ActualLaborCost: st.ActualLaborCost.String(),
		})
	}
	return dto
}

func toItemDTOs(items []costing.WorkOrderItem) []ItemDTO {
	dtos := make([]ItemDTO, len(items))
	for i := range items {
		dtos[i] = toItemDTO(&items[i])
	}
	return dtos
}

func toWorkLogDTOs(logs []costing.WorkLog) []WorkLogDTO {
	dtos := make([]WorkLogDTO, len(logs))
	for i, wl := range logs {
		dtos[i] = WorkLogDTO{
			ID:         string(wl.ID),
			Date:       wl.Date.String(),
			WorkerID:   string(wl.WorkerID),
			WorkerName: wl.WorkerName,
			DailyRate:  wl.DailyRate.String(),
			ItemID:     string(wl.ItemID),
			SubTaskID:  string(wl.SubTaskID),
		}
	}
	return dtos
}

func toRecalcResultDTO(result *recalc.Result) RecalcResultDTO {
	return RecalcResultDTO{
		WorkOrderID: string(result.WorkOrderID),
		Items:       toItemDTOs(result.Items),
		WorkLogs:    toWorkLogDTOs(result.WorkLogs),
		Missing:     toMissingDTOs(result.Missing),
	}
}
