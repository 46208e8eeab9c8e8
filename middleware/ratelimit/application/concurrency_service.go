package application

import (
	"context"
	"time"

	"rento/middleware/ratelimit/domain"
)

// ConcurrencyService caps in-flight writes. A nil Pool admits everything.
type ConcurrencyService struct {
	Pool domain.SlotPool
	// AcquireTimeout bounds the wait for a slot. Zero waits until ctx is done.
	AcquireTimeout time.Duration
	// OnReject is called once per request that never got a slot.
	OnReject func()
}

// Acquire returns a release func and true, or nil and false when no slot was
// obtained in time.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if !ok && s.OnReject != nil {
		s.OnReject()
	}
	return release, ok
}
