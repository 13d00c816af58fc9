package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pulse/app/internal/auth"
	"pulse/app/internal/cache"
	"pulse/app/internal/hub"
	"pulse/app/internal/metrics"
	"pulse/app/internal/ratelimit"
)

// Options carries what the routes read from and control
type Options struct {
	Snapshots *cache.Snapshots
	Refresher Refresher
	Hub       *hub.Hub
	Metrics   *metrics.Metrics
	Auth      *auth.Auth
	Limiter   *ratelimit.Limiter
	Logger    *slog.Logger
}

// SetupRoutes configures all HTTP routes and middlewares
func SetupRoutes(o Options) http.Handler {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(o.Logger))
	r.Use(SecureHeaders)

	r.Get("/healthz", HandleHealth())
	r.Method(http.MethodGet, "/metrics", o.Metrics.Handler())
	if o.Hub != nil {
		r.Get("/ws", o.Hub.HandleConnect)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Compress(5, "application/json", "text/plain"))

		r.Get("/status", HandleStatus(o.Snapshots))
		r.Route("/endpoints/{name}", func(r chi.Router) {
			r.Get("/", HandleEndpoint(o.Snapshots))
			r.Get("/history", HandleEndpointHistory(o.Snapshots))
			r.Get("/chart", HandleEndpointChart(o.Snapshots))
		})
		r.Get("/alerts", HandleAlerts(o.Snapshots))
		r.Get("/alerts/{id}", HandleAlert(o.Snapshots))

		// Admin API routes (rate limited before authentication)
		r.Route("/admin", func(r chi.Router) {
			if o.Limiter != nil {
				r.Use(o.Limiter.Middleware)
			}
			r.Use(o.Auth.RequireAuth)

			if o.Refresher != nil {
				r.Post("/refresh", HandleRefresh(o.Refresher, o.Logger))
			}
			r.Get("/logs", HandleGetLogs())
			r.Get("/logs/stats", HandleGetLogStats())
			r.Delete("/logs", HandleClearLogs())
			r.Get("/journal", HandleJournalAlerts())
		})
	})

	return r
}
