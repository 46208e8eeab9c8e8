package ratelimit

import (
	"net/http"
	"time"

	"rento/middleware/ratelimit/application"
	"rento/middleware/ratelimit/domain"
)

// EdgeStore is the stats label of the per-IP throttle.
const EdgeStore = "edge"

type Options struct {
	Store              domain.LimiterStore
	Stats              domain.StatsStore
	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
	RejectStatus       int
	// MinRetryAfter floors the Retry-After of a blocked request.
	MinRetryAfter       time.Duration
	AddRateLimitHeaders bool
	Now                 func() time.Time
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

// Middleware is the edge throttle: one token bucket per client key.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	svc := application.Service{
		Store:         opts.Store,
		MinRetryAfter: opts.MinRetryAfter,
		Now:           opts.Now,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			dec := svc.Decide(domain.Key(key))
			record(r, opts.Stats, domain.StatsEvent{
				Store:   EdgeStore,
				Key:     domain.Key(key),
				Allowed: dec.Allowed,
				At:      opts.Now(),
			})
			if !dec.Allowed {
				w.Header().Set("Retry-After", retryAfterSeconds(dec.RetryAfter))
				writeJSONError(w, opts.RejectStatus, "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// record fills the HTTP fields of ev and sends it to stats. Stats are
// best-effort: errors are dropped.
func record(r *http.Request, stats domain.StatsStore, ev domain.StatsEvent) {
	if stats == nil {
		return
	}
	ev.Method = r.Method
	ev.Path = routeOf(r)
	_ = stats.Record(r.Context(), ev)
}
