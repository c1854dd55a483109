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
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: zap access log + request metrics
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the web client
  5. Identity:      /api/vacation/* and /api/users only

ROUTE GROUPS:
  /api/auth/status      Identity check (public)
  /api/users            User directory
  /api/vacation/*       Vacation requests and transitions
  /api/calendar/{year}  Week grid (public)
  /metrics              Prometheus exposition
  /healthz              Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Identity middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options configures NewRouter.
type Options struct {
	CORSOrigins []string
	Logger      *zap.Logger

	// Ping backs /healthz; nil means always healthy.
	Ping func(ctx context.Context) error
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, auth *Authenticator, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", health(opts.Ping))
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/status", auth.Status)
		r.Get("/calendar/{year}", h.Calendar)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Get("/users", h.ListUsers)

			// Vacation routes
			r.Route("/vacation", func(r chi.Router) {
				r.Post("/", h.CreateVacation)
				r.Get("/", h.ListMine)
				r.Post("/days", h.CreateFromDays)
				r.Get("/days", h.DaysMine)
				r.Get("/pending-approvals", h.PendingApprovals)
				r.Get("/employee/{employeeId}", h.ListForEmployee)

				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", h.UpdateVacation)
					r.Delete("/", h.DeleteVacation)
					r.Post("/request-deletion", h.RequestDeletion)
					r.Post("/approve", h.Approve)
					r.Post("/reject", h.Reject)
					r.Post("/approve-deletion", h.ApproveDeletion)
					r.Post("/reject-deletion", h.RejectDeletion)
				})
			})
		})
	})

	return r
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
