// Package api exposes the status, uptime and incident views over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ankityadav/statusboard/internal/api/middleware"
	"github.com/ankityadav/statusboard/internal/metrics"
)

type RouterConfig struct {
	Version   string
	Logger    zerolog.Logger
	Status    StatusService
	Incidents IncidentViews
	Metrics   *metrics.Metrics
	// RateLimit is requests per minute per client; zero uses
	// middleware.StandardRateLimit and a negative value disables it.
	RateLimit  int
	TrustProxy bool
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		InternalError(w, r, "Internal server error")
	})))
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}

	limit := middleware.StandardRateLimit
	if cfg.RateLimit != 0 {
		limit.RequestLimit = cfg.RateLimit
	}
	limit.TrustProxy = cfg.TrustProxy

	h := NewHandler(cfg.Version, cfg.Status, cfg.Incidents, cfg.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(limit))
			r.Get("/status", h.Status)
			r.Get("/uptime", h.Uptime)
			r.Get("/incidents", h.Incidents)
			r.Get("/summary", h.Summary)
		})
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, http.StatusNotFound, "Not found")
	})

	return r
}
