package domain

import (
	"context"
	"time"
)

// StatsEvent is one rate limit decision.
//
// Method/Path are plain strings so the event is not tied to HTTP. Watch the
// cardinality of Key and Path before sending them to Redis or Prometheus.
type StatsEvent struct {
	// Store is the action class, or "edge" for the per-IP throttle.
	Store   string
	Key     Key
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persists decision statistics. Callers treat errors as best-effort
// and never fail a request because of them.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
