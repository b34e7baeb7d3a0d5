// Package metrics exposes Prometheus counters for the laboratory workflow
// and an HTTP exposition endpoint.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for laboratory workflow events.
type Metrics struct {
	registry *prometheus.Registry

	SamplesReceived  prometheus.Counter
	SamplesPromoted  prometheus.Counter
	ResultsSubmitted *prometheus.CounterVec
	QCFailures       *prometheus.CounterVec
	DerivedInjected  *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New creates a Metrics instance with all collectors registered on a fresh
// registry. A dedicated registry keeps tests isolated from the global one.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SamplesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lims_samples_received_total",
			Help: "Number of samples logged in at reception.",
		}),
		SamplesPromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lims_samples_promoted_total",
			Help: "Number of samples promoted to under_review.",
		}),
		ResultsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lims_results_submitted_total",
			Help: "Number of test results recorded, by source.",
		}, []string{"source"}),
		QCFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lims_qc_failures_total",
			Help: "Number of results that failed quality control, by parameter.",
		}, []string{"parameter"}),
		DerivedInjected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lims_derived_values_total",
			Help: "Number of derived values injected, by parameter.",
		}, []string{"parameter"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lims_http_requests_total",
			Help: "HTTP requests served, by method and status.",
		}, []string{"method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lims_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		m.SamplesReceived,
		m.SamplesPromoted,
		m.ResultsSubmitted,
		m.QCFailures,
		m.DerivedInjected,
		m.HTTPRequests,
		m.RequestDuration,
	)

	return m
}

// Instrument counts and times every request passing through it.
func (m *Metrics) Instrument() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			method := c.Request().Method
			m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler returns the exposition endpoint for GET /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
