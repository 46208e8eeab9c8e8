package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"rento/middleware/ratelimit/domain"
	"rento/middleware/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type brokenStore struct{}

func (brokenStore) Hit(context.Context, domain.Key, domain.Config) (domain.Result, error) {
	return domain.Result{}, errors.New("connection refused")
}

var cfg = domain.Config{MaxRequests: 2, Window: time.Minute, StoreName: domain.StoreTours}

func fixedNow() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }

func TestWindowService_DelegatesToStore(t *testing.T) {
	svc := WindowService{Store: infra.NewMemoryWindowStore(infra.WithClock(fixedNow), infra.WithSweep(0, nil))}
	ctx := context.Background()

	assert.True(t, svc.Check(ctx, "u1", cfg).Allowed)
	assert.True(t, svc.Check(ctx, "u1", cfg).Allowed)

	res := svc.Check(ctx, "u1", cfg)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, fixedNow().Add(time.Minute), res.ResetAt)
}

func TestWindowService_NilStoreAllows(t *testing.T) {
	res := WindowService{Now: fixedNow}.Check(context.Background(), "u1", cfg)
	assert.True(t, res.Allowed)
	assert.Equal(t, cfg.MaxRequests, res.Remaining)
}

func TestWindowService_StoreErrorFailsOpenAndLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := WindowService{Store: brokenStore{}, Logger: zap.New(core), Now: fixedNow}

	for i := 0; i < 5; i++ {
		res := svc.Check(context.Background(), "u1", cfg)
		assert.True(t, res.Allowed)
		assert.Equal(t, fixedNow().Add(cfg.Window), res.ResetAt)
	}

	entries := logs.FilterMessage("rate limit store unavailable, allowing request").All()
	assert.Len(t, entries, 5)
	assert.Equal(t, "tours", entries[0].ContextMap()["store"])
}
