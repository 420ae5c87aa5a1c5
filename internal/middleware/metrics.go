package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service. It also observes
// analysis outcomes for the application layer.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	submitted   prometheus.Counter
	items       prometheus.Counter
	failed      *prometheus.CounterVec
	suggestions *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greentech_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "greentech_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greentech_http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greentech_analyses_submitted_total",
			Help: "Analyses persisted.",
		}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greentech_analysis_items_total",
			Help: "Rows scored across persisted analyses.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greentech_analyses_failed_total",
			Help: "Failed analysis requests by pipeline stage.",
		}, []string{"stage"}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greentech_suggestions_total",
			Help: "Alternative suggestion requests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.inFlight,
		m.submitted, m.items, m.failed, m.suggestions,
	)
	return m
}

// AnalysisSubmitted records a persisted analysis of n rows.
func (m *Metrics) AnalysisSubmitted(n int) {
	m.submitted.Inc()
	m.items.Add(float64(n))
}

// AnalysisFailed records a failure at stage.
func (m *Metrics) AnalysisFailed(stage string) {
	m.failed.WithLabelValues(stage).Inc()
}

// SuggestionOutcome records one alternative suggestion call.
func (m *Metrics) SuggestionOutcome(ok bool) {
	if ok {
		m.suggestions.WithLabelValues("ok").Inc()
		return
	}
	m.suggestions.WithLabelValues("error").Inc()
}

// Middleware tracks request metrics. Route labels use the chi pattern so
// cardinality stays bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
