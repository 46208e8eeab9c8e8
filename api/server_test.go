package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rento/config"
	"rento/metrics"
	"rento/middleware/ratelimit/domain"
	"rento/middleware/ratelimit/infra"
	"rento/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	landlord = "landlord-1"
	tenant   = "tenant-1"
	stranger = "stranger-1"
)

type testEnv struct {
	t       *testing.T
	srv     *Server
	repo    *store.GormRepository
	auth    *Authenticator
	metrics *metrics.Metrics
	now     time.Time
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()

	db, err := store.Open(config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db, zap.NewNop()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	env := &testEnv{
		t:       t,
		repo:    store.NewGormRepository(db),
		auth:    NewAuthenticator("test-key", "rento-test"),
		metrics: metrics.New(nil),
		now:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	// handler tests are not about quotas; the rate limit tests restore the defaults
	generous := map[string]domain.Config{}
	for name, p := range domain.DefaultPolicies() {
		p.MaxRequests = 1000
		generous[name] = p
	}

	opts := Options{
		Repo:     env.repo,
		Auth:     env.auth,
		Windows:  infra.NewMemoryWindowStore(infra.WithClock(clock), infra.WithSweep(0, nil)),
		Policies: generous,
		Metrics:  env.metrics,
		Logger:   zap.NewNop(),
		Now:      clock,
	}
	for _, m := range mutate {
		m(&opts)
	}
	env.srv = New(opts)
	return env
}

func (e *testEnv) do(method, path, user string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:4000"
	if user != "" {
		token, err := e.auth.Issue(user, time.Hour)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func (e *testEnv) createProperty() string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/properties", landlord, map[string]any{
		"title": "Sunny two-bedroom", "city": "Porto", "monthly_rent": 95000, "bedrooms": 2,
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[propertyView](e.t, rec).ID
}

func (e *testEnv) apply(propertyID string) applicationView {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/applications", tenant, map[string]any{"property_id": propertyID, "message": "Hi!"})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[applicationView](e.t, rec)
}

// seedApplication stores an application with raw status text, bypassing the API.
func (e *testEnv) seedApplication(propertyID, status string) string {
	e.t.Helper()
	a := &store.Application{PropertyID: propertyID, ApplicantID: tenant, Status: status}
	require.NoError(e.t, e.repo.CreateApplication(context.Background(), a))
	return a.ID
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = env.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "rento_http_requests_total")
}

func TestAuth_RejectsMissingAndInvalidTokens(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/properties", "", map[string]any{"title": "x"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Unauthorized", errorOf(t, rec))

	other := NewAuthenticator("another-key", "rento-test")
	token, err := other.Issue(landlord, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/tours/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotEmpty(t, errorOf(t, rec))
}
