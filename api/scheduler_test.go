package api_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/mobelart/costing-engine/api"
	"github.com/mobelart/costing-engine/costing"
	"github.com/mobelart/costing-engine/costing/store"
)

func newScheduler() *api.RecalculationScheduler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := api.NewHandler(store.NewMemory(), log)
	return api.NewRecalculationScheduler(handler, []costing.OrgID{"org-1"}, log)
}

func TestRecalculationScheduler_StopIsIdempotent(t *testing.T) {
	sched := newScheduler()
	sched.Start()
	sched.Stop()
	sched.Stop() // second call is a no-op, not a closed-channel panic
}

func TestRecalculationScheduler_StopWithoutStart(t *testing.T) {
	newScheduler().Stop()
}

func TestRecalculationScheduler_DisabledNeverStarts(t *testing.T) {
	sched := newScheduler()
	sched.Enabled = false
	sched.Start()
	sched.Stop()
}
