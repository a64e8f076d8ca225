/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the office frontend

ROUTE GROUPS:
  /api/workorders/*  Recalculation and reconciliation
  /api/attendance/*  Attendance repair workflow
  /api/holidays      Calendar management
  /api/workers/*     Advisory earnings view

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/workorders", func(r chi.Router) {
			r.Get("/{id}", h.GetWorkOrder)
			r.Post("/{id}/recalculate", h.RecalculateWorkOrder)
			r.Post("/{id}/check", h.CheckWorkOrder)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Get("/missing", h.MissingAttendance)
			r.Post("/", h.MarkAttendance)
			r.Post("/batch", h.MarkAttendanceBatch)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
		})

		r.Route("/workers", func(r chi.Router) {
			r.Get("/{id}/earnings", h.WorkerEarnings)
		})
	})

	return r
}
