package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	EntriesCreated      *prometheus.CounterVec
	EntriesFixed        prometheus.Counter
	RenumberRuns        *prometheus.CounterVec
	IntegrityMismatches *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	entriesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_ledger_entries_created_total",
		Help: "Journal entries created by document type.",
	}, []string{"doc_type"})
	entriesFixed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_ledger_entries_fixed_total",
		Help: "Journal entries repaired by the balance fixer.",
	})
	renumberRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_ledger_renumber_runs_total",
		Help: "Renumber runs per fiscal year and outcome.",
	}, []string{"fiscal_year", "outcome"})
	integrityMismatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_ledger_integrity_mismatches_total",
		Help: "Integrity audit findings per fiscal year.",
	}, []string{"fiscal_year"})
	registry.MustRegister(requests, duration, entriesCreated, entriesFixed, renumberRuns, integrityMismatches)
	return &Metrics{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:       requests,
		requestDuration:     duration,
		EntriesCreated:      entriesCreated,
		EntriesFixed:        entriesFixed,
		RenumberRuns:        renumberRuns,
		IntegrityMismatches: integrityMismatches,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
