/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the costing engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (CONFIG_PATH or ./config/local.yaml)
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Start the background recalculation scheduler
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with a config file
  CONFIG_PATH=./config/local.yaml ./server

  # Run against an in-memory database
  STORAGE_PATH=":memory:" ./server

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mobelart/costing-engine/api"
	"github.com/mobelart/costing-engine/config"
	"github.com/mobelart/costing-engine/costing"
	"github.com/mobelart/costing-engine/store/sqlite"
)

const (
	envDev  = "dev"
	envProd = "prod"
)

func main() {
	cfg := config.MustLoad()
	log := newLogger(cfg.Env)

	store, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		log.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	handler := api.NewHandler(store, log)
	router := api.NewRouter(handler)

	var scheduler *api.RecalculationScheduler
	if len(cfg.SchedulerOrgs) > 0 {
		orgs := make([]costing.OrgID, len(cfg.SchedulerOrgs))
		for i, o := range cfg.SchedulerOrgs {
			orgs[i] = costing.OrgID(o)
		}
		scheduler = api.NewRecalculationScheduler(handler, orgs, log)
		scheduler.CheckInterval = cfg.SchedulerInterval
		scheduler.Start()
	}

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("server starting",
			slog.String("address", cfg.HTTPServer.Address),
			slog.String("env", cfg.Env),
			slog.String("storage", cfg.StoragePath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", slog.String("error", err.Error()))
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	log.Info("server stopped")
}

func newLogger(env string) *slog.Logger {
	switch env {
	case envDev:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
