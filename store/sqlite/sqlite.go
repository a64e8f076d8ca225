/*
Package sqlite provides a SQLite-backed implementation of costing.Store.

PURPOSE:
  Production persistence for the costing engine. The same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  work_orders:       Order header with the optimistic version column
  work_order_items:  Items, money fields stored as decimal strings
  sub_tasks:         SubTasks with derived fields
  work_logs:         One row per worker-day, fully replaced on recompute
  attendance:        One row per (worker, date), upserted
  workers, holidays: Reference data

ATOMIC RECOMPUTE COMMIT:
  SaveRecomputedState runs in one SQL transaction:
    1. Read the order's version; mismatch -> ErrStaleRecalculation
    2. Replace Items and SubTasks
    3. Delete and re-insert the order's WorkLogs
    4. Bump the version
  Either everything commits or nothing does.

REPRESENTATION:
  Money as decimal strings (never floats), dates as "2006-01-02" TEXT,
  pause periods and helper assignments as JSON columns.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/costing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - costing/store.go: Interface definition
  - costing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/mobelart/costing-engine/costing"
)

// Store implements costing.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS work_orders (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		org_id TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT,
		due_date TEXT,
		steps_json TEXT,
		version INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_work_orders_org_status
		ON work_orders(org_id, status);

	CREATE TABLE IF NOT EXISTS work_order_items (
		id TEXT PRIMARY KEY,
		work_order_id TEXT NOT NULL,
		product_id TEXT,
		product_name TEXT,
		quantity INTEGER NOT NULL,
		status TEXT NOT NULL,
		started TEXT,
		ended TEXT,
		paused INTEGER NOT NULL DEFAULT 0,
		pauses_json TEXT,
		worker_id TEXT,
		product_value TEXT NOT NULL DEFAULT '0',
		material_cost TEXT NOT NULL DEFAULT '0',
		transport_share TEXT NOT NULL DEFAULT '0',
		services_total TEXT NOT NULL DEFAULT '0',
		actual_labor_cost TEXT NOT NULL DEFAULT '0'
	);
	CREATE INDEX IF NOT EXISTS idx_items_order
		ON work_order_items(work_order_id);

	CREATE TABLE IF NOT EXISTS sub_tasks (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		process TEXT,
		quantity INTEGER NOT NULL,
		status TEXT NOT NULL,
		paused INTEGER NOT NULL DEFAULT 0,
		pauses_json TEXT,
		worker_id TEXT,
		helpers_json TEXT,
		started TEXT,
		ended TEXT,
		working_days INTEGER NOT NULL DEFAULT 0,
		actual_labor_cost TEXT NOT NULL DEFAULT '0'
	);
	CREATE INDEX IF NOT EXISTS idx_sub_tasks_item
		ON sub_tasks(item_id);

	CREATE TABLE IF NOT EXISTS work_logs (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		worker_name TEXT,
		daily_rate TEXT NOT NULL,
		item_id TEXT NOT NULL,
		sub_task_id TEXT,
		org_id TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_work_logs_item
		ON work_logs(item_id);
	CREATE INDEX IF NOT EXISTS idx_work_logs_worker_date
		ON work_logs(worker_id, date);

	-- One attendance record per worker per date.
	CREATE TABLE IF NOT EXISTS attendance (
		worker_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		org_id TEXT NOT NULL,
		PRIMARY KEY (worker_id, date)
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance(date);

	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		daily_rate TEXT NOT NULL DEFAULT '0',
		org_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT,
		org_id TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_holidays_org
		ON holidays(org_id, date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) LoadWorkOrder(ctx context.Context, id costing.WorkOrderID) (*costing.WorkOrder, error) {
	const op = "sqlite.LoadWorkOrder"

	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, org_id, status, created_at, due_date, steps_json, version
		FROM work_orders WHERE id = ?`, string(id))

	var (
		wo        costing.WorkOrder
		createdAt sql.NullString
		dueDate   sql.NullString
		stepsJSON sql.NullString
	)
	err := row.Scan(&wo.ID, &wo.Number, &wo.OrgID, &wo.Status, &createdAt, &dueDate, &stepsJSON, &wo.Version)
	if err == sql.ErrNoRows {
		return nil, costing.ErrWorkOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if createdAt.Valid {
		if d, perr := costing.ParseDate(createdAt.String); perr == nil {
			wo.CreatedAt = d
		}
	}
	if dueDate.Valid {
		if d, perr := costing.ParseDate(dueDate.String); perr == nil {
			wo.DueDate = d
		}
	}
	if stepsJSON.Valid && stepsJSON.String != "" {
		if err := json.Unmarshal([]byte(stepsJSON.String), &wo.Steps); err != nil {
			return nil, fmt.Errorf("%s: decode steps: %w", op, err)
		}
	}
	return &wo, nil
}

func (s *Store) LoadItems(ctx context.Context, id costing.WorkOrderID) ([]costing.WorkOrderItem, error) {
	const op = "sqlite.LoadItems"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, work_order_id, product_id, product_name, quantity, status,
		       started, ended, paused, pauses_json, worker_id,
		       product_value, material_cost, transport_share, services_total, actual_labor_cost
		FROM work_order_items WHERE work_order_id = ? ORDER BY id`, string(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []costing.WorkOrderItem
	for rows.Next() {
		var (
			item                   costing.WorkOrderItem
			productID, productName sql.NullString
			started, ended         sql.NullString
			paused                 int
			pausesJSON             sql.NullString
			workerID               sql.NullString
			pv, mc, ts, sv, alc    string
		)
		if err := rows.Scan(&item.ID, &item.WorkOrderID, &productID, &productName,
			&item.Quantity, &item.Status, &started, &ended, &paused, &pausesJSON,
			&workerID, &pv, &mc, &ts, &sv, &alc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		item.ProductID = productID.String
		item.ProductName = productName.String
		item.Started = parseDateP(started)
		item.Ended = parseDateP(ended)
		item.Paused = paused != 0
		item.WorkerID = costing.WorkerID(workerID.String)
		item.Pauses, err = decodePauses(pausesJSON)
		if err != nil {
			return nil, fmt.Errorf("%s: item %s: %w", op, item.ID, err)
		}
		item.ProductValue = parseMoney(pv)
		item.MaterialCost = parseMoney(mc)
		item.TransportShare = parseMoney(ts)
		item.ServicesTotal = parseMoney(sv)
		item.ActualLaborCost = parseMoney(alc)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range items {
		items[i].SubTasks, err = s.loadSubTasks(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *Store) loadSubTasks(ctx context.Context, itemID costing.ItemID) ([]costing.SubTask, error) {
	const op = "sqlite.loadSubTasks"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, process, quantity, status, paused, pauses_json,
		       worker_id, helpers_json, started, ended, working_days, actual_labor_cost
		FROM sub_tasks WHERE item_id = ? ORDER BY id`, string(itemID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var subTasks []costing.SubTask
	for rows.Next() {
		var (
			st                      costing.SubTask
			process                 sql.NullString
			paused                  int
			pausesJSON, helpersJSON sql.NullString
			workerID                sql.NullString
			started, ended          sql.NullString
			alc                     string
		)
		if err := rows.Scan(&st.ID, &st.ItemID, &process, &st.Quantity, &st.Status,
			&paused, &pausesJSON, &workerID, &helpersJSON, &started, &ended,
			&st.WorkingDays, &alc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		st.Process = process.String
		st.Paused = paused != 0
		st.WorkerID = costing.WorkerID(workerID.String)
		st.Started = parseDateP(started)
		st.Ended = parseDateP(ended)
		st.ActualLaborCost = parseMoney(alc)
		st.Pauses, err = decodePauses(pausesJSON)
		if err != nil {
			return nil, fmt.Errorf("%s: subtask %s: %w", op, st.ID, err)
		}
		st.Helpers, err = decodeHelpers(helpersJSON)
		if err != nil {
			return nil, fmt.Errorf("%s: subtask %s: %w", op, st.ID, err)
		}
		subTasks = append(subTasks, st)
	}
	return subTasks, rows.Err()
}

func (s *Store) LoadActiveWorkOrders(ctx context.Context, org costing.OrgID) ([]*costing.WorkOrder, error) {
	const op = "sqlite.LoadActiveWorkOrders"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM work_orders
		WHERE org_id = ? AND status IN (?, ?) ORDER BY id`,
		string(org), string(costing.OrderAssigned), string(costing.OrderInProgress))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []costing.WorkOrderID
	for rows.Next() {
		var id costing.WorkOrderID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var orders []*costing.WorkOrder
	for _, id := range ids {
		wo, err := s.LoadWorkOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		wo.Items, err = s.LoadItems(ctx, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, wo)
	}
	return orders, nil
}

func (s *Store) LoadWorkLogs(ctx context.Context, itemIDs []costing.ItemID) ([]costing.WorkLog, error) {
	const op = "sqlite.LoadWorkLogs"

	if len(itemIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = string(id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, worker_id, worker_name, daily_rate, item_id, sub_task_id, org_id
		FROM work_logs WHERE item_id IN (`+placeholders+`)
		ORDER BY item_id, sub_task_id, date, worker_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var logs []costing.WorkLog
	for rows.Next() {
		var (
			wl                    costing.WorkLog
			dateRaw, rate         string
			workerName, subTaskID sql.NullString
		)
		if err := rows.Scan(&wl.ID, &dateRaw, &wl.WorkerID, &workerName, &rate,
			&wl.ItemID, &subTaskID, &wl.OrgID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		wl.Date, err = costing.ParseDate(dateRaw)
		if err != nil {
			return nil, fmt.Errorf("%s: bad date %q: %w", op, dateRaw, err)
		}
		wl.WorkerName = workerName.String
		wl.SubTaskID = costing.SubTaskID(subTaskID.String)
		wl.DailyRate = parseMoney(rate)
		logs = append(logs, wl)
	}
	return logs, rows.Err()
}

func (s *Store) LoadAttendance(ctx context.Context, workerIDs []costing.WorkerID, from, to costing.Date) ([]costing.WorkerAttendance, error) {
	const op = "sqlite.LoadAttendance"

	if len(workerIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(workerIDs)), ",")
	args := make([]any, 0, len(workerIDs)+2)
	for _, id := range workerIDs {
		args = append(args, string(id))
	}
	args = append(args, from.String(), to.String())

	rows, err := s.db.QueryContext(ctx, `
		SELECT worker_id, date, status, org_id
		FROM attendance
		WHERE worker_id IN (`+placeholders+`) AND date >= ? AND date <= ?
		ORDER BY date, worker_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var records []costing.WorkerAttendance
	for rows.Next() {
		var (
			a       costing.WorkerAttendance
			dateRaw string
		)
		if err := rows.Scan(&a.WorkerID, &dateRaw, &a.Status, &a.OrgID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.Date, err = costing.ParseDate(dateRaw)
		if err != nil {
			return nil, fmt.Errorf("%s: bad date %q: %w", op, dateRaw, err)
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

func (s *Store) LoadHolidays(ctx context.Context, org costing.OrgID) ([]costing.Holiday, error) {
	const op = "sqlite.LoadHolidays"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, name, org_id FROM holidays
		WHERE org_id = '' OR org_id = ? ORDER BY date`, string(org))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var holidays []costing.Holiday
	for rows.Next() {
		var (
			h       costing.Holiday
			dateRaw string
			name    sql.NullString
		)
		if err := rows.Scan(&h.ID, &dateRaw, &name, &h.OrgID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		h.Date, err = costing.ParseDate(dateRaw)
		if err != nil {
			return nil, fmt.Errorf("%s: bad date %q: %w", op, dateRaw, err)
		}
		h.Name = name.String
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) LoadWorker(ctx context.Context, id costing.WorkerID) (*costing.Worker, error) {
	const op = "sqlite.LoadWorker"

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, daily_rate, org_id FROM workers WHERE id = ?`, string(id))

	var (
		w    costing.Worker
		rate string
	)
	err := row.Scan(&w.ID, &w.Name, &rate, &w.OrgID)
	if err == sql.ErrNoRows {
		return nil, costing.ErrWorkerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	w.DailyRate = parseMoney(rate)
	return &w, nil
}

func (s *Store) LoadWorkers(ctx context.Context, ids []costing.WorkerID) (map[costing.WorkerID]costing.Worker, error) {
	result := make(map[costing.WorkerID]costing.Worker, len(ids))
	for _, id := range ids {
		w, err := s.LoadWorker(ctx, id)
		if err == costing.ErrWorkerNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[id] = *w
	}
	return result, nil
}

// =============================================================================
// WRITES
// =============================================================================

// SaveRecomputedState commits one order's recompute atomically: version
// check, item and subtask replacement, full WorkLog replacement, version
// bump. Either everything commits or nothing does.
func (s *Store) SaveRecomputedState(ctx context.Context, state costing.RecomputedState) error {
	const op = "sqlite.SaveRecomputedState"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM work_orders WHERE id = ?`, string(state.WorkOrderID)).Scan(&version)
	if err == sql.ErrNoRows {
		return costing.ErrWorkOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if version != state.Version {
		return costing.ErrStaleRecalculation
	}

	for i := range state.Items {
		if err := upsertItem(ctx, tx, &state.Items[i]); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	for _, wl := range state.WorkLogs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO work_logs
				(id, date, worker_id, worker_name, daily_rate, item_id, sub_task_id, org_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(wl.ID), wl.Date.String(), string(wl.WorkerID), wl.WorkerName,
			wl.DailyRate.String(), string(wl.ItemID), string(wl.SubTaskID), string(wl.OrgID))
		if err != nil {
			return fmt.Errorf("%s: work log %s: %w", op, wl.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE work_orders SET version = version + 1 WHERE id = ?`,
		string(state.WorkOrderID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// upsertItem replaces one item's row, its subtasks, and clears its
// WorkLogs so the caller can re-insert the fresh set.
func upsertItem(ctx context.Context, tx *sql.Tx, item *costing.WorkOrderItem) error {
	pausesJSON, err := encodePauses(item.Pauses)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO work_order_items
			(id, work_order_id, product_id, product_name, quantity, status,
			 started, ended, paused, pauses_json, worker_id,
			 product_value, material_cost, transport_share, services_total, actual_labor_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			work_order_id = excluded.work_order_id,
			product_id = excluded.product_id,
			product_name = excluded.product_name,
			quantity = excluded.quantity,
			status = excluded.status,
			started = excluded.started,
			ended = excluded.ended,
			paused = excluded.paused,
			pauses_json = excluded.pauses_json,
			worker_id = excluded.worker_id,
			product_value = excluded.product_value,
			material_cost = excluded.material_cost,
			transport_share = excluded.transport_share,
			services_total = excluded.services_total,
			actual_labor_cost = excluded.actual_labor_cost`,
		string(item.ID), string(item.WorkOrderID), item.ProductID, item.ProductName,
		item.Quantity, string(item.Status), dateStr(item.Started), dateStr(item.Ended),
		boolInt(item.Paused), pausesJSON, string(item.WorkerID),
		item.ProductValue.String(), item.MaterialCost.String(), item.TransportShare.String(),
		item.ServicesTotal.String(), item.ActualLaborCost.String())
	if err != nil {
		return fmt.Errorf("item %s: %w", item.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sub_tasks WHERE item_id = ?`, string(item.ID)); err != nil {
		return err
	}
	for j := range item.SubTasks {
		st := &item.SubTasks[j]
		stPauses, err := encodePauses(st.Pauses)
		if err != nil {
			return err
		}
		helpersJSON, err := encodeHelpers(st.Helpers)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sub_tasks
				(id, item_id, process, quantity, status, paused, pauses_json,
				 worker_id, helpers_json, started, ended, working_days, actual_labor_cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(st.ID), string(st.ItemID), st.Process, st.Quantity, string(st.Status),
			boolInt(st.Paused), stPauses, string(st.WorkerID), helpersJSON,
			dateStr(st.Started), dateStr(st.Ended), st.WorkingDays, st.ActualLaborCost.String())
		if err != nil {
			return fmt.Errorf("subtask %s: %w", st.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM work_logs WHERE item_id = ?`, string(item.ID))
	return err
}

func (s *Store) UpsertAttendance(ctx context.Context, entries []costing.AttendanceEntry) error {
	const op = "sqlite.UpsertAttendance"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (worker_id, date, status, org_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(worker_id, date) DO UPDATE SET
				status = excluded.status,
				org_id = excluded.org_id`,
			string(e.WorkerID), e.Date.String(), string(e.Status), string(e.OrgID))
		if err != nil {
			return fmt.Errorf("%s: worker %s on %s: %w", op, e.WorkerID, e.Date, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func (s *Store) SaveHoliday(ctx context.Context, h costing.Holiday) error {
	const op = "sqlite.SaveHoliday"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, org_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET date = excluded.date, name = excluded.name`,
		h.ID, h.Date.String(), h.Name, string(h.OrgID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SaveWorker upserts a worker record. Not part of costing.Store; used by
// the surrounding application when the crew roster changes.
func (s *Store) SaveWorker(ctx context.Context, w costing.Worker) error {
	const op = "sqlite.SaveWorker"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (id, name, daily_rate, org_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, daily_rate = excluded.daily_rate`,
		string(w.ID), w.Name, w.DailyRate.String(), string(w.OrgID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SaveWorkOrder inserts or updates an order header together with its
// items and subtasks. Not part of costing.Store; used when orders are
// created or edited upstream of the costing engine.
func (s *Store) SaveWorkOrder(ctx context.Context, wo *costing.WorkOrder) error {
	const op = "sqlite.SaveWorkOrder"

	stepsJSON, err := json.Marshal(wo.Steps)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	version := wo.Version
	if version == 0 {
		version = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO work_orders (id, number, org_id, status, created_at, due_date, steps_json, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			status = excluded.status,
			due_date = excluded.due_date,
			steps_json = excluded.steps_json`,
		string(wo.ID), wo.Number, string(wo.OrgID), string(wo.Status),
		wo.CreatedAt.String(), wo.DueDate.String(), string(stepsJSON), version)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for i := range wo.Items {
		if err := upsertItem(ctx, tx, &wo.Items[i]); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

type pauseRecord struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

type helperRecord struct {
	WorkerID string  `json:"worker_id"`
	Started  *string `json:"started,omitempty"`
	Ended    *string `json:"ended,omitempty"`
}

func encodePauses(pauses []costing.PausePeriod) (string, error) {
	if len(pauses) == 0 {
		return "", nil
	}
	records := make([]pauseRecord, len(pauses))
	for i, p := range pauses {
		records[i].Start = p.Start.String()
		if p.End != nil {
			e := p.End.String()
			records[i].End = &e
		}
	}
	b, err := json.Marshal(records)
	return string(b), err
}

func decodePauses(raw sql.NullString) ([]costing.PausePeriod, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var records []pauseRecord
	if err := json.Unmarshal([]byte(raw.String), &records); err != nil {
		return nil, err
	}
	pauses := make([]costing.PausePeriod, len(records))
	for i, r := range records {
		start, err := costing.ParseDate(r.Start)
		if err != nil {
			return nil, err
		}
		pauses[i].Start = start
		if r.End != nil {
			end, err := costing.ParseDate(*r.End)
			if err != nil {
				return nil, err
			}
			pauses[i].End = &end
		}
	}
	return pauses, nil
}

func encodeHelpers(helpers []costing.HelperAssignment) (string, error) {
	if len(helpers) == 0 {
		return "", nil
	}
	records := make([]helperRecord, len(helpers))
	for i, h := range helpers {
		records[i].WorkerID = string(h.WorkerID)
		if h.Started != nil {
			sv := h.Started.String()
			records[i].Started = &sv
		}
		if h.Ended != nil {
			e := h.Ended.String()
			records[i].Ended = &e
		}
	}
	b, err := json.Marshal(records)
	return string(b), err
}

func decodeHelpers(raw sql.NullString) ([]costing.HelperAssignment, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var records []helperRecord
	if err := json.Unmarshal([]byte(raw.String), &records); err != nil {
		return nil, err
	}
	helpers := make([]costing.HelperAssignment, len(records))
	for i, r := range records {
		helpers[i].WorkerID = costing.WorkerID(r.WorkerID)
		if r.Started != nil {
			d, err := costing.ParseDate(*r.Started)
			if err != nil {
				return nil, err
			}
			helpers[i].Started = &d
		}
		if r.Ended != nil {
			d, err := costing.ParseDate(*r.Ended)
			if err != nil {
				return nil, err
			}
			helpers[i].Ended = &d
		}
	}
	return helpers, nil
}

func parseDateP(raw sql.NullString) *costing.Date {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	d, err := costing.ParseDate(raw.String)
	if err != nil {
		return nil
	}
	return &d
}

func dateStr(d *costing.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseMoney(raw string) costing.Money {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return costing.Money{Value: decimal.Zero}
	}
	return costing.Money{Value: d}
}
