package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankityadav/statusboard/internal/api/middleware"
	"github.com/ankityadav/statusboard/internal/config"
	"github.com/ankityadav/statusboard/internal/dashboard"
	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/incident"
	"github.com/ankityadav/statusboard/internal/uptime"
)

type StatusService interface {
	Status(ctx context.Context) (health.SystemStatus, error)
	Uptime(ctx context.Context, days int) dashboard.UptimeReport
	Summary(ctx context.Context) (dashboard.Summary, error)
}

type IncidentViews interface {
	Active(ctx context.Context) []incident.Incident
	ScheduledMaintenance(ctx context.Context) []incident.Incident
	Recent(ctx context.Context, limit int) []incident.Incident
	BundleLimit(ctx context.Context, limit int) incident.Bundle
}

type Handler struct {
	version   string
	status    StatusService
	incidents IncidentViews
	log       zerolog.Logger
	now       func() time.Time
}

func NewHandler(version string, status StatusService, incidents IncidentViews, log zerolog.Logger) *Handler {
	return &Handler{
		version:   version,
		status:    status,
		incidents: incidents,
		log:       log,
		now:       time.Now,
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// Health handles GET /api/health. It reports process liveness only and
// does not probe anything.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   config.AppName,
		Version:   h.version,
		Timestamp: h.now().UTC(),
	})
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.status.Status(r.Context())
	if err != nil {
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("status check failed")
		InternalError(w, r, "Failed to check services")
		return
	}
	JSON(w, http.StatusOK, st)
}

// Uptime handles GET /api/uptime?days=N.
func (h *Handler) Uptime(w http.ResponseWriter, r *http.Request) {
	days := uptime.DefaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			BadRequest(w, r, "days must be an integer")
			return
		}
		days = n
	}

	JSON(w, http.StatusOK, h.status.Uptime(r.Context(), uptime.ClampDays(days)))
}

// Incidents handles GET /api/incidents?type=active|maintenance|recent|all&limit=N.
func (h *Handler) Incidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := incident.DefaultRecentLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			BadRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = min(n, incident.MaxRecentLimit)
	}

	ctx := r.Context()
	switch kind := q.Get("type"); kind {
	case "", "active":
		JSON(w, http.StatusOK, map[string][]incident.Incident{"incidents": h.incidents.Active(ctx)})
	case "maintenance":
		JSON(w, http.StatusOK, map[string][]incident.Incident{"maintenance": h.incidents.ScheduledMaintenance(ctx)})
	case "recent":
		JSON(w, http.StatusOK, map[string][]incident.Incident{"incidents": h.incidents.Recent(ctx, limit)})
	case "all":
		JSON(w, http.StatusOK, h.incidents.BundleLimit(ctx, limit))
	default:
		BadRequest(w, r, "Invalid type parameter")
	}
}

// Summary handles GET /api/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.status.Summary(r.Context())
	if err != nil {
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("summary failed")
		InternalError(w, r, "Failed to load status summary")
		return
	}
	JSON(w, http.StatusOK, sum)
}
