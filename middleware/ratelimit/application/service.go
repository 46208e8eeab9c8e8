package application

import (
	"time"

	"rento/middleware/ratelimit/domain"
)

// Service decides the edge throttle. It returns a decision, never touches
// headers or status codes.
type Service struct {
	Store domain.LimiterStore
	// MinRetryAfter is the floor of the advertised Retry-After.
	MinRetryAfter time.Duration
	Now           func() time.Time
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	lim := s.Store.Get(key)
	if lim == nil {
		return domain.Decision{Allowed: true}
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ok, wait := lim.Take(now())
	if ok {
		return domain.Decision{Allowed: true}
	}

	floor := s.MinRetryAfter
	if floor <= 0 {
		floor = time.Second
	}
	return domain.Decision{Allowed: false, RetryAfter: max(wait, floor)}
}
