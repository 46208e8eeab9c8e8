// Package metrics owns the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rento"

// Metrics is registered on its own registerer so tests and several servers
// in one process do not collide on the default registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// RateLimitDecisions is labelled (store, outcome).
	RateLimitDecisions *prometheus.CounterVec
	ConcurrencyRejects prometheus.Counter

	// Transitions is labelled (entity, from, to, outcome).
	Transitions *prometheus.CounterVec
	// UnknownStatus counts stored status values the engines did not recognise.
	UnknownStatus *prometheus.CounterVec
}

// New registers every collector on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimitDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limit decisions by store and outcome.",
		}, []string{"store", "outcome"}),
		ConcurrencyRejects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_rejected_total",
			Help:      "Write requests rejected for lack of an in-flight slot.",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Status change attempts by entity, from, to and outcome.",
		}, []string{"entity", "from", "to", "outcome"}),
		UnknownStatus: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_status_total",
			Help:      "Stored status values that were not recognised.",
		}, []string{"entity"}),
	}
}

// Transition outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
)

func (m *Metrics) ObserveTransition(entity, from, to, outcome string) {
	m.Transitions.WithLabelValues(entity, from, to, outcome).Inc()
}

// Middleware records request count and latency. The route label is the echo
// route template, never the raw path.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}
			m.RequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
