/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/users/*          User management
  /api/kpis/*           KPI definitions, values, status
  /api/status           Population traffic-light overview
  /api/reminders/*      Preview, manual trigger, audit trail
  /metrics              Prometheus metrics
  /healthz              Liveness probe

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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

	// API routes
	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
		})

		// KPI routes
		r.Route("/kpis", func(r chi.Router) {
			r.Get("/", h.ListKPIs)
			r.Post("/", h.CreateKPI)
			r.Get("/{id}", h.GetKPI)
			r.Delete("/{id}", h.DeleteKPI)
			r.Post("/{id}/values", h.RecordValue)
			r.Get("/{id}/values", h.ListValues)
			r.Get("/{id}/status", h.GetStatus)
		})

		// Population status
		r.Get("/status", h.StatusOverview)

		// Reminder routes
		r.Route("/reminders", func(r chi.Router) {
			r.Post("/preview", h.PreviewReminders)
			r.Post("/run", h.TriggerReminders)
			r.Get("/runs", h.ListReminderRuns)
		})
	})

	// Operational endpoints
	r.Handle("/metrics", h.Metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
