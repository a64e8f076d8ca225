/*
handlers.go - HTTP API handlers for the costing engine

PURPOSE:
  Exposes recalculation, reconciliation, and the attendance repair
  workflow via REST. Handles HTTP request/response and JSON mapping,
  delegates everything else to the domain packages.

ENDPOINTS:
  WorkOrders:
    GET    /api/workorders/{id}              Computed Item/SubTask state
    POST   /api/workorders/{id}/recalculate  Recompute and persist
    POST   /api/workorders/{id}/check        Read-only reconciliation

  Attendance:
    GET    /api/attendance/missing?org=      Missing worker-days scan
    POST   /api/attendance                   Mark one worker-day
    POST   /api/attendance/batch             Batch repair, one recompute

  Reference data:
    GET    /api/holidays?org=                List holidays
    POST   /api/holidays                     Add a holiday
    GET    /api/workers/{id}/earnings        Advisory earnings view

AS-OF SEMANTICS:
  Every computing endpoint accepts ?as_of=YYYY-MM-DD and defaults to
  today. The engine itself never reads the wall clock.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (bad dates, unknown attendance status)
  - 404: WorkOrder or worker not found
  - 409: Stale recalculation (version conflict, retryable)
  - 422: Malformed production state
  - 500: Internal errors, including consistency violations

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mobelart/costing-engine/costing"
	"github.com/mobelart/costing-engine/recalc"
	"github.com/mobelart/costing-engine/reconcile"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        costing.Store
	Orchestrator *recalc.Orchestrator
	Checker      *reconcile.Checker
	Repairer     *reconcile.Repairer

	log *slog.Logger
}

// NewHandler wires the engine components around one store.
func NewHandler(store costing.Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	orch := recalc.New(store, log)
	return &Handler{
		Store:        store,
		Orchestrator: orch,
		Checker:      reconcile.NewChecker(store),
		Repairer:     reconcile.NewRepairer(store, orch.RecalculateFunc()),
		log:          log,
	}
}

// asOf reads the ?as_of query parameter, defaulting to today.
func asOf(r *http.Request) (costing.Date, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return costing.DateOf(time.Now()), nil
	}
	return costing.ParseDate(raw)
}

// =============================================================================
// WORKORDER HANDLERS
// =============================================================================

// GetWorkOrder returns the stored computed state of one order.
func (h *Handler) GetWorkOrder(w http.ResponseWriter, r *http.Request) {
	id := costing.WorkOrderID(chi.URLParam(r, "id"))

	wo, err := h.Store.LoadWorkOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	wo.Items, err = h.Store.LoadItems(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dto := WorkOrderDTO{
		ID:      string(wo.ID),
		Number:  wo.Number,
		OrgID:   string(wo.OrgID),
		Status:  string(wo.Status),
		DueDate: wo.DueDate.String(),
		Version: wo.Version,
		Items:   toItemDTOs(wo.Items),
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, dto)
}

// RecalculateWorkOrder recomputes one order and persists the result.
func (h *Handler) RecalculateWorkOrder(w http.ResponseWriter, r *http.Request) {
	id := costing.WorkOrderID(chi.URLParam(r, "id"))
	day, err := asOf(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Orchestrator.RecalculateWorkOrder(r.Context(), id, day)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toRecalcResultDTO(result))
}

// CheckWorkOrder runs the read-only reconciliation for one order.
func (h *Handler) CheckWorkOrder(w http.ResponseWriter, r *http.Request) {
	id := costing.WorkOrderID(chi.URLParam(r, "id"))
	day, err := asOf(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	report, err := h.Checker.CheckWorkOrder(r.Context(), id, day)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toReportDTO(report))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// MissingAttendance scans the organization's active orders for implied
// worker-days with no attendance record.
func (h *Handler) MissingAttendance(w http.ResponseWriter, r *http.Request) {
	org := costing.OrgID(r.URL.Query().Get("org"))
	if org == "" {
		writeError(w, r, http.StatusBadRequest, "org query parameter is required", nil)
		return
	}
	day, err := asOf(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	missing, err := h.Checker.ScanMissingAttendance(r.Context(), org, day)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toMissingDTOs(missing))
}

// MarkAttendance records one worker-day and recomputes the order unless
// skipped.
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req MarkAttendanceRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	day, err := costing.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid date (use YYYY-MM-DD)", err)
		return
	}
	now, err := asOf(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	entry := costing.AttendanceEntry{
		WorkerID: costing.WorkerID(req.WorkerID),
		Date:     day,
		Status:   costing.AttendanceStatus(req.Status),
		OrgID:    costing.OrgID(req.OrgID),
	}
	opts := reconcile.MarkOptions{SkipRecalculation: req.SkipRecalculation}
	err = h.Repairer.MarkAttendance(r.Context(), costing.WorkOrderID(req.WorkOrderID), entry, opts, now)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{"status": "ok"})
}

// MarkAttendanceBatch records many worker-days for one order with a
// single deferred recompute at the end.
func (h *Handler) MarkAttendanceBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchAttendanceRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, r, http.StatusBadRequest, "entries must not be empty", nil)
		return
	}
	now, err := asOf(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	entries := make([]costing.AttendanceEntry, len(req.Entries))
	for i, e := range req.Entries {
		day, err := costing.ParseDate(e.Date)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid date (use YYYY-MM-DD)", err)
			return
		}
		entries[i] = costing.AttendanceEntry{
			WorkerID: costing.WorkerID(e.WorkerID),
			Date:     day,
			Status:   costing.AttendanceStatus(e.Status),
			OrgID:    costing.OrgID(e.OrgID),
		}
	}

	opts := reconcile.MarkOptions{SkipRecalculation: req.SkipRecalculation}
	err = h.Repairer.MarkAttendanceBatch(r.Context(), costing.WorkOrderID(req.WorkOrderID), entries, opts, now)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.log.Info("attendance batch marked",
		slog.String("work_order", req.WorkOrderID),
		slog.Int("entries", len(entries)),
		slog.Bool("recalculated", !req.SkipRecalculation))

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{"status": "ok", "marked": len(entries)})
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// ListHolidays returns global holidays plus the organization's own.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	org := costing.OrgID(r.URL.Query().Get("org"))

	holidays, err := h.Store.LoadHolidays(r.Context(), org)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{ID: hol.ID, Date: hol.Date.String(), Name: hol.Name, OrgID: string(hol.OrgID)}
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, dtos)
}

// CreateHoliday adds a holiday to the calendar. Existing computed state
// is not touched; orders pick the change up on their next recompute.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	day, err := costing.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid date (use YYYY-MM-DD)", err)
		return
	}
	if req.ID == "" {
		req.ID = "holiday-" + req.Date
	}

	holiday := costing.Holiday{ID: req.ID, Date: day, Name: req.Name, OrgID: costing.OrgID(req.OrgID)}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, HolidayDTO{ID: holiday.ID, Date: holiday.Date.String(), Name: holiday.Name, OrgID: string(holiday.OrgID)})
}

// WorkerEarnings runs the advisory earnings cross-check for one worker
// over [from, to], against logs from the organization's active orders.
func (h *Handler) WorkerEarnings(w http.ResponseWriter, r *http.Request) {
	id := costing.WorkerID(chi.URLParam(r, "id"))

	from, err := costing.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := costing.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid to date (use YYYY-MM-DD)", err)
		return
	}
	if to.Before(from) {
		writeError(w, r, http.StatusBadRequest, "to must not precede from", nil)
		return
	}

	worker, err := h.Store.LoadWorker(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	attendance, err := h.Store.LoadAttendance(r.Context(), []costing.WorkerID{id}, from, to)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	orders, err := h.Store.LoadActiveWorkOrders(r.Context(), worker.OrgID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var itemIDs []costing.ItemID
	for _, wo := range orders {
		itemIDs = append(itemIDs, wo.ItemIDs()...)
	}
	logs, err := h.Store.LoadWorkLogs(r.Context(), itemIDs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var inRange []costing.WorkLog
	for _, wl := range logs {
		if wl.WorkerID == id && !wl.Date.Before(from) && !wl.Date.After(to) {
			inRange = append(inRange, wl)
		}
	}

	days := 0
	logged := costing.NewMoney(0)
	for _, a := range attendance {
		if a.Status.IsBillable() {
			days++
		}
	}
	for _, wl := range inRange {
		logged = logged.Add(wl.DailyRate)
	}

	dto := EarningsDTO{
		WorkerID:     string(worker.ID),
		WorkerName:   worker.Name,
		From:         from.String(),
		To:           to.String(),
		BillableDays: days,
		Expected:     worker.DailyRate.Round2().MulInt(days).String(),
		Logged:       logged.String(),
	}
	if issue := reconcile.WorkerEarnings(*worker, attendance, inRange, h.Checker.Epsilon); issue != nil {
		d := toIssueDTO(*issue)
		dto.Issue = &d
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, dto)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// writeDomainError maps domain sentinels to HTTP status codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, costing.ErrWorkOrderNotFound):
		writeError(w, r, http.StatusNotFound, "work order not found", err)
	case errors.Is(err, costing.ErrWorkerNotFound):
		writeError(w, r, http.StatusNotFound, "worker not found", err)
	case errors.Is(err, costing.ErrStaleRecalculation):
		writeError(w, r, http.StatusConflict, "order changed during recalculation, retry", err)
	case errors.Is(err, reconcile.ErrInvalidAttendanceStatus):
		writeError(w, r, http.StatusBadRequest, "invalid attendance status", err)
	case costing.IsClientError(err):
		writeError(w, r, http.StatusUnprocessableEntity, "production data is malformed", err)
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error", err)
	}
}
