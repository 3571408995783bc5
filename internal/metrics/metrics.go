// Package metrics exposes Prometheus instrumentation for the HTTP surface and
// the deburst pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered by New.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec

	mosaics       *prometheus.CounterVec
	mosaicSeconds prometheus.Histogram
	bursts        prometheus.Counter
	gcpsDiscarded prometheus.Counter
}

// New registers the collectors with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors with reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_response_time_seconds",
			Help: "Duration of HTTP requests.",
		}, []string{"route"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of HTTP requests.",
		}, []string{"route", "status"}),
		mosaics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "deburst_mosaics_total",
			Help: "Number of mosaic assemblies by outcome.",
		}, []string{"status"}),
		mosaicSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "deburst_mosaic_duration_seconds",
			Help:    "Duration of mosaic assembly and georeferencing.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		bursts: f.NewCounter(prometheus.CounterOpts{
			Name: "deburst_bursts_total",
			Help: "Number of bursts composed into mosaics.",
		}),
		gcpsDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "deburst_gcps_discarded_total",
			Help: "Number of ground control points discarded during rereferencing.",
		}),
	}
}

// ObserveMosaic records one pipeline run.
func (m *Metrics) ObserveMosaic(status string, elapsed time.Duration, bursts, discarded int) {
	m.mosaics.WithLabelValues(status).Inc()
	m.mosaicSeconds.Observe(elapsed.Seconds())
	m.bursts.Add(float64(bursts))
	m.gcpsDiscarded.Add(float64(discarded))
}

// Middleware records request counts and latencies labelled by chi route
// pattern, so path parameters do not create new series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

// Handler serves the registered metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
