package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ankityadav/statusboard/internal/health"
)

// Metrics bundles the prometheus collectors used by the status service.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	ProbesTotal        *prometheus.CounterVec
	ProbeLatencySec    *prometheus.HistogramVec
	ServiceUp          *prometheus.GaugeVec
	OverallStatus      *prometheus.GaugeVec
	CheckCycles        prometheus.Counter
	UptimeRecordErrors prometheus.Counter
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statusboard_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statusboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statusboard_probes_total",
			Help: "Total number of service health probes by outcome.",
		}, []string{"service", "status"}),
		ProbeLatencySec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statusboard_probe_latency_seconds",
			Help:    "Latency of measured health probes in seconds.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"service"}),
		ServiceUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statusboard_service_up",
			Help: "1 when the last probe of the service was operational.",
		}, []string{"service"}),
		OverallStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statusboard_overall_status",
			Help: "1 for the current overall status, 0 for the others.",
		}, []string{"status"}),
		CheckCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statusboard_check_cycles_total",
			Help: "Total number of scheduled check cycles.",
		}),
		UptimeRecordErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statusboard_uptime_record_errors_total",
			Help: "Total number of failed uptime recordings.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.ProbesTotal,
		m.ProbeLatencySec,
		m.ServiceUp,
		m.OverallStatus,
		m.CheckCycles,
		m.UptimeRecordErrors,
	)

	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveProbe implements health.Observer.
func (m *Metrics) ObserveProbe(h health.ServiceHealth) {
	m.ProbesTotal.WithLabelValues(h.ServiceID, string(h.Status)).Inc()
	if ms, ok := h.Latency.Milliseconds(); ok {
		m.ProbeLatencySec.WithLabelValues(h.ServiceID).Observe(float64(ms) / 1000)
	}
	up := 0.0
	if h.Status == health.StatusOperational {
		up = 1
	}
	m.ServiceUp.WithLabelValues(h.ServiceID).Set(up)
}

// ObserveOverall marks the current overall status.
func (m *Metrics) ObserveOverall(s health.Status) {
	for _, candidate := range []health.Status{
		health.StatusOperational,
		health.StatusDegraded,
		health.StatusOutage,
		health.StatusUnknown,
	} {
		v := 0.0
		if candidate == s {
			v = 1
		}
		m.OverallStatus.WithLabelValues(string(candidate)).Set(v)
	}
}

// ObserveCycle counts one scheduled check cycle.
func (m *Metrics) ObserveCycle(overall health.Status) {
	m.CheckCycles.Inc()
	m.ObserveOverall(overall)
}

func (m *Metrics) ObserveRecordError() {
	m.UptimeRecordErrors.Inc()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := routePattern(r)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// routePattern keeps label cardinality bounded by using the matched chi
// pattern instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
