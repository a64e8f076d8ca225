/*
scheduler.go - Automated recalculation scheduler

PURPOSE:
  Periodically recomputes every active WorkOrder so derived costs and
  WorkLogs track attendance edits, new holidays, and production changes
  made outside the API (direct imports, nightly ERP sync).

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Recomputes per organization via the batch orchestrator
  - Individual order failures are logged and never stop the sweep

USAGE:
  scheduler := NewRecalculationScheduler(handler, []costing.OrgID{"org-1"}, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - recalc/batch.go: RecalculateActiveOrders
  - handlers.go: RecalculateWorkOrder endpoint (manual recompute)
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mobelart/costing-engine/costing"
)

// RecalculationScheduler sweeps active orders on a fixed interval.
type RecalculationScheduler struct {
	Handler       *Handler
	Orgs          []costing.OrgID
	CheckInterval time.Duration
	Enabled       bool

	log    *slog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRecalculationScheduler creates a scheduler for the given
// organizations.
func NewRecalculationScheduler(handler *Handler, orgs []costing.OrgID, log *slog.Logger) *RecalculationScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &RecalculationScheduler{
		Handler:       handler,
		Orgs:          orgs,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RecalculationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.log.Info("scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run(rs.ticker)

	rs.log.Info("scheduler started", slog.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
// Further calls are no-ops.
func (rs *RecalculationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	rs.ticker = nil
	close(rs.stop)
	rs.wg.Wait()
	rs.log.Info("scheduler stopped")
}

func (rs *RecalculationScheduler) run(ticker *time.Ticker) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.sweep()

	for {
		select {
		case <-ticker.C:
			rs.sweep()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RecalculationScheduler) sweep() {
	ctx := context.Background()
	today := costing.DateOf(time.Now())

	for _, org := range rs.Orgs {
		batch, err := rs.Handler.Orchestrator.RecalculateActiveOrders(ctx, org, today)
		if err != nil {
			rs.log.Error("scheduled recalculation sweep failed",
				slog.String("org", string(org)),
				slog.String("error", err.Error()))
			continue
		}
		rs.log.Info("scheduled recalculation sweep completed",
			slog.String("org", string(org)),
			slog.Int("recalculated", len(batch.Results)),
			slog.Int("failed", len(batch.Failures)))
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (rs *RecalculationScheduler) RunNow() {
	rs.sweep()
}
