package infra

import (
	"context"

	"rento/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStats counts decisions on a vector labelled (store, outcome).
// Keys and paths are left out on purpose: their cardinality is unbounded.
type PrometheusStats struct {
	decisions *prometheus.CounterVec
}

func NewPrometheusStats(decisions *prometheus.CounterVec) *PrometheusStats {
	return &PrometheusStats{decisions: decisions}
}

func (p *PrometheusStats) Record(_ context.Context, ev domain.StatsEvent) error {
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}
	p.decisions.WithLabelValues(ev.Store, outcome).Inc()
	return nil
}
