package application

import (
	"context"
	"time"

	"rento/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// WindowService is the single entry point for per-caller quotas.
type WindowService struct {
	Store  domain.WindowStore
	Logger *zap.Logger
	Now    func() time.Time
}

// Check counts one call of callerID against cfg. The limiter is best-effort: a
// missing store or a store error lets the call through.
func (s WindowService) Check(ctx context.Context, callerID string, cfg domain.Config) domain.Result {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if s.Store == nil {
		return domain.Result{Allowed: true, Remaining: cfg.MaxRequests, ResetAt: now().Add(cfg.Window)}
	}

	res, err := s.Store.Hit(ctx, domain.Key(callerID), cfg)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("rate limit store unavailable, allowing request",
				zap.String("store", cfg.StoreName),
				zap.Error(err))
		}
		return domain.Result{Allowed: true, Remaining: cfg.MaxRequests, ResetAt: now().Add(cfg.Window)}
	}
	return res
}
