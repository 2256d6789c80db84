/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:      Unique ID per request for tracing
  2. RequestLogger:  httplog, ECS schema, through the given slog.Logger
  3. Recoverer:      Panic recovery (500 instead of crash)
  4. Heartbeat:      GET /health, answered before auth
  5. CORS:           Cross-origin requests for the dashboard
  6. RateLimit:      Per-client token bucket
  7. Verifier:       JWT from the Authorization header or "jwt" cookie (/api only)
  8. RequireAuth:    401 without a valid token carrying user_id (/api only)

ROUTE GROUPS:
  /api/worker-balance          Worker report (worker itself or admin)
  /api/users/{id}/balance      User report (worker of the pair or admin)
  /api/workers/{id}/assignments
  /api/balances/*              Persisted balances (admin)
  /api/workers, /api/users     Party management (admin)
  /api/assignments/*           Assignment management (admin)
  /api/holidays/*              Holiday calendar (admin writes)
  /api/scenarios/*             Demo scenarios (admin loads)

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Auth and rate limiting
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterConfig carries the cross-cutting settings of the router.
type RouterConfig struct {
	AllowedOrigins  []string
	RateLimitPerSec float64
	RateLimitBurst  int
	Logger          *slog.Logger
	JWTAuth         *jwtauth.JWTAuth
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = h.Logger
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RateLimitPerSec > 0 {
		r.Use(RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(jwtauth.Verifier(cfg.JWTAuth))
		r.Use(RequireAuth)

		// Balance reports, scoped to the caller
		r.Get("/worker-balance", h.GetWorkerBalance)
		r.Get("/users/{id}/balance", h.GetUserBalance)
		r.Get("/workers/{id}/assignments", h.GetWorkerAssignments)

		r.Get("/holidays", h.ListHolidays)
		r.Get("/scenarios", h.ListScenarios)
		r.Get("/scenarios/current", h.GetCurrentScenario)

		// Admin routes
		admin := r.With(AdminOnly)

		admin.Get("/balances", h.ListBalances)
		admin.Post("/balances/generate", h.GenerateBalance)
		admin.Get("/balances/{userId}/{workerId}", h.GetBalance)

		admin.Get("/workers", h.ListWorkers)
		admin.Post("/workers", h.CreateWorker)
		admin.Get("/workers/{id}", h.GetWorker)

		admin.Get("/users", h.ListUsers)
		admin.Post("/users", h.CreateUser)
		admin.Get("/users/{id}", h.GetUser)
		admin.Get("/users/{id}/assignments", h.GetUserAssignments)

		admin.Post("/assignments", h.CreateAssignment)
		admin.Get("/assignments/{id}", h.GetAssignment)
		admin.Patch("/assignments/{id}/status", h.UpdateAssignmentStatus)
		admin.Put("/assignments/{id}/schedule", h.ReplaceAssignmentSchedule)

		admin.Post("/holidays", h.CreateHoliday)
		admin.Post("/holidays/defaults", h.AddDefaultHolidays)
		admin.Delete("/holidays/{id}", h.DeleteHoliday)

		admin.Post("/scenarios/load", h.LoadScenario)
	})

	return r
}
