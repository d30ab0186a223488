package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters. Each instance owns its registry so
// tests can build as many as they need.
type Metrics struct {
	Registry *prometheus.Registry

	TasksRendered     *prometheus.CounterVec
	ResultsSubmitted  prometheus.Counter
	ResponsesStored   prometheus.Counter
	EntriesSkipped    prometheus.Counter
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		TasksRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surveyd_tasks_rendered_total",
			Help: "Task documents rendered, by trigger.",
		}, []string{"trigger"}),
		ResultsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "surveyd_results_submitted_total",
			Help: "Result payloads accepted.",
		}),
		ResponsesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "surveyd_responses_stored_total",
			Help: "Responses materialized from result payloads.",
		}),
		EntriesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "surveyd_result_entries_skipped_total",
			Help: "Result entries dropped during reconciliation or materialization.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surveyd_http_requests_total",
			Help: "HTTP requests served, by method and status.",
		}, []string{"method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "surveyd_http_request_duration_seconds",
			Help:    "HTTP request latency, by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.Registry.MustRegister(
		m.TasksRendered,
		m.ResultsSubmitted,
		m.ResponsesStored,
		m.EntriesSkipped,
		m.HTTPRequestsTotal,
		m.HTTPDuration,
		collectors.NewGoCollector(),
	)

	return m
}

// Middleware counts requests and records their latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
