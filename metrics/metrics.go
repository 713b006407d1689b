// Package metrics exposes Prometheus collectors for the studio server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the studio's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "youngin",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "youngin",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "youngin",
			Subsystem: "studio",
			Name:      "active_sessions",
			Help:      "Number of open design sessions.",
		},
	)

	historyOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "youngin",
			Subsystem: "studio",
			Name:      "history_operations_total",
			Help:      "History operations by kind and outcome.",
		},
		[]string{"op", "result"},
	)

	compositeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "youngin",
			Subsystem: "studio",
			Name:      "composite_duration_seconds",
			Help:      "Time spent compositing garment previews.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"template"},
	)

	designSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "youngin",
			Subsystem: "studio",
			Name:      "design_saves_total",
			Help:      "Design save attempts by outcome.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		activeSessions,
		historyOps,
		compositeDuration,
		designSaves,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Instrument records request counts and latency labelled by chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// SetActiveSessions reports the number of open sessions.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// RecordHistory counts an undo, redo, record or restore.
func RecordHistory(op string, ok bool) {
	historyOps.WithLabelValues(op, result(ok)).Inc()
}

// ObserveComposite records the duration of one composite.
func ObserveComposite(hasTemplate bool, d time.Duration) {
	label := "none"
	if hasTemplate {
		label = "garment"
	}
	compositeDuration.WithLabelValues(label).Observe(d.Seconds())
}

// RecordSave counts a save attempt: "ok", "error" or "rejected".
func RecordSave(outcome string) {
	designSaves.WithLabelValues(outcome).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "noop"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
