package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"rento/middleware/ratelimit/application"
	"rento/middleware/ratelimit/domain"
	"rento/middleware/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func userKey(r *http.Request) string { return r.Header.Get("X-User") }

func newWindow(cfg domain.Config, clock func() time.Time, stats domain.StatsStore) http.Handler {
	store := infra.NewMemoryWindowStore(infra.WithClock(clock), infra.WithSweep(0, nil))
	return WindowMiddleware(WindowOptions{
		Service: application.WindowService{Store: store},
		Config:  cfg,
		KeyFn:   userKey,
		Stats:   stats,
		Now:     clock,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
}

func post(h http.Handler, user string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "http://rento/api/messages", nil)
	r.Header.Set("X-User", user)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestWindowMiddleware_DeniesWithHeaders(t *testing.T) {
	now := t0
	clock := func() time.Time { return now }
	cfg := domain.DefaultPolicies()[domain.StoreMessages]
	h := newWindow(cfg, clock, nil)

	for i := 0; i < cfg.MaxRequests; i++ {
		require.Equal(t, http.StatusCreated, post(h, "u1").Code, "call %d", i+1)
	}

	now = t0.Add(20 * time.Second)
	w := post(h, "u1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, strconv.FormatInt(t0.Add(time.Minute).Unix(), 10), w.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, "40", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests, please try again later"}`, w.Body.String())

	// other callers keep their own quota
	assert.Equal(t, http.StatusCreated, post(h, "u2").Code)
}

func TestWindowMiddleware_ResetsAfterWindow(t *testing.T) {
	now := t0
	clock := func() time.Time { return now }
	h := newWindow(domain.Config{MaxRequests: 1, Window: time.Minute, StoreName: domain.StoreTours}, clock, nil)

	require.Equal(t, http.StatusCreated, post(h, "u1").Code)
	require.Equal(t, http.StatusTooManyRequests, post(h, "u1").Code)

	// the window is still open at exactly resetAt
	now = t0.Add(time.Minute)
	require.Equal(t, http.StatusTooManyRequests, post(h, "u1").Code)

	now = t0.Add(time.Minute + time.Millisecond)
	assert.Equal(t, http.StatusCreated, post(h, "u1").Code)
}

func TestWindowMiddleware_AddHeadersOnAllowed(t *testing.T) {
	clock := func() time.Time { return t0 }
	store := infra.NewMemoryWindowStore(infra.WithClock(clock), infra.WithSweep(0, nil))
	h := WindowMiddleware(WindowOptions{
		Service:    application.WindowService{Store: store},
		Config:     domain.DefaultPolicies()[domain.StoreFavorites],
		KeyFn:      userKey,
		AddHeaders: true,
		Now:        clock,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := post(h, "u1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "19", w.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, w.Header().Get("Retry-After"))
}

func TestWindowMiddleware_RecordsStatsAndDenials(t *testing.T) {
	clock := func() time.Time { return t0 }
	stats := infra.NewMemoryStatsStore()
	denied := 0
	store := infra.NewMemoryWindowStore(infra.WithClock(clock), infra.WithSweep(0, nil))
	h := WindowMiddleware(WindowOptions{
		Service:  application.WindowService{Store: store},
		Config:   domain.Config{MaxRequests: 1, Window: time.Minute, StoreName: domain.StoreApplications},
		KeyFn:    userKey,
		Stats:    stats,
		OnDenied: func(*http.Request, string, domain.Result) { denied++ },
		Now:      clock,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	post(h, "u1")
	post(h, "u1")
	post(h, "u1")

	assert.Equal(t, 2, denied)
	assert.Equal(t, infra.Counters{Allowed: 1, Denied: 2}, stats.ByStore()[domain.StoreApplications])
	assert.Equal(t, infra.Counters{Allowed: 1, Denied: 2}, stats.ByRoute()["POST /api/messages"])
}

type downStore struct{}

func (downStore) Hit(context.Context, domain.Key, domain.Config) (domain.Result, error) {
	return domain.Result{}, errors.New("redis: connection refused")
}

func TestWindowMiddleware_StoreDownFailsOpen(t *testing.T) {
	h := WindowMiddleware(WindowOptions{
		Service: application.WindowService{Store: downStore{}},
		Config:  domain.Config{MaxRequests: 1, Window: time.Minute, StoreName: domain.StoreMessages},
		KeyFn:   userKey,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(h, "u1").Code)
	}
}

func TestWindowMiddleware_StatsGroupedByRouteTemplate(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	h := newWindow(domain.Config{MaxRequests: 100, Window: time.Minute, StoreName: domain.StoreTours}, func() time.Time { return t0 }, stats)

	for i := 0; i < 20; i++ {
		r := httptest.NewRequest(http.MethodPatch, "http://rento/api/tours/id-"+strconv.Itoa(i)+"/status", nil)
		r = r.WithContext(WithRoute(r.Context(), "/api/tours/:id/status"))
		r.Header.Set("X-User", "u1")
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	routes := stats.ByRoute()
	require.Len(t, routes, 1)
	assert.Equal(t, infra.Counters{Allowed: 20}, routes["PATCH /api/tours/:id/status"])
}
