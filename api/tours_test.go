package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"rento/metrics"
	"rento/store"
	"rento/workflow/tours"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) requestTour(propertyID string) tourView {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/tours", tenant, map[string]any{
		"property_id":  propertyID,
		"scheduled_at": e.now.Add(72 * time.Hour),
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[tourView](e.t, rec)
}

func patchTour(env *testEnv, id, user, status string) (int, map[string]any) {
	rec := env.do(http.MethodPatch, "/api/tours/"+id+"/status", user, map[string]any{"status": status})
	return rec.Code, decode[map[string]any](env.t, rec)
}

func actionStatuses(actions []tours.Action) []tours.Status {
	out := []tours.Status{}
	for _, a := range actions {
		out = append(out, a.Status)
	}
	return out
}

func TestCreateTour(t *testing.T) {
	env := newTestEnv(t)
	propID := env.createProperty()

	tour := env.requestTour(propID)
	assert.Equal(t, tours.StatusRequested, tour.Status)
	assert.Equal(t, landlord, tour.LandlordID)
	assert.Equal(t, tours.RoleTenant, tour.Role)
	assert.Equal(t, []tours.Status{tours.StatusCancelled}, actionStatuses(tour.Actions))

	rec := env.do(http.MethodPost, "/api/tours", tenant, map[string]any{"property_id": propID, "scheduled_at": env.now.Add(-time.Hour)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/tours", landlord, map[string]any{"property_id": propID, "scheduled_at": env.now.Add(time.Hour)})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetTour_ActionsByRole(t *testing.T) {
	env := newTestEnv(t)
	tour := env.requestTour(env.createProperty())

	rec := env.do(http.MethodGet, "/api/tours/"+tour.ID, landlord, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[tourView](t, rec)
	assert.Equal(t, tours.RoleLandlord, got.Role)
	assert.Equal(t, []tours.Status{tours.StatusConfirmed, tours.StatusCancelled}, actionStatuses(got.Actions))
	assert.Equal(t, "Confirm", got.Actions[0].Label)
	assert.Equal(t, tours.ToneDanger, got.Actions[1].Tone)

	rec = env.do(http.MethodGet, "/api/tours/"+tour.ID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/tours/missing", landlord, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTourStatus_FollowsOfferedActions(t *testing.T) {
	env := newTestEnv(t)
	tour := env.requestTour(env.createProperty())

	code, body := patchTour(env, tour.ID, tenant, "confirmed")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Cannot change a requested tour to confirmed", body["error"])

	code, _ = patchTour(env, tour.ID, stranger, "cancelled")
	assert.Equal(t, http.StatusForbidden, code)

	code, body = patchTour(env, tour.ID, landlord, "confirmed")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "confirmed", body["status"])
	assert.Len(t, body["actions"], 2)

	code, body = patchTour(env, tour.ID, tenant, "completed")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Cannot change a confirmed tour to completed", body["error"])

	code, _ = patchTour(env, tour.ID, landlord, "completed")
	require.Equal(t, http.StatusOK, code)

	// completed is final for everyone
	for _, user := range []string{landlord, tenant} {
		code, _ = patchTour(env, tour.ID, user, "cancelled")
		assert.Equal(t, http.StatusBadRequest, code)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Transitions.WithLabelValues("tour", "requested", "confirmed", metrics.OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Transitions.WithLabelValues("tour", "requested", "confirmed", metrics.OutcomeRejected)))
}

func TestUpdateTourStatus_Rescheduled(t *testing.T) {
	env := newTestEnv(t)
	propID := env.createProperty()
	ctx := context.Background()

	seed := func() string {
		tour := &store.Tour{PropertyID: propID, LandlordID: landlord, TenantID: tenant, ScheduledAt: env.now.Add(time.Hour), Status: "rescheduled"}
		require.NoError(t, env.repo.CreateTour(ctx, tour))
		return tour.ID
	}

	id := seed()
	code, _ := patchTour(env, id, tenant, "confirmed")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = patchTour(env, id, landlord, "completed")
	assert.Equal(t, http.StatusOK, code)

	id = seed()
	code, _ = patchTour(env, id, tenant, "cancelled")
	assert.Equal(t, http.StatusOK, code)
}

func TestUpdateTourStatus_UnknownValues(t *testing.T) {
	env := newTestEnv(t)
	tour := env.requestTour(env.createProperty())

	code, body := patchTour(env, tour.ID, landlord, "postponed")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "unknown value")

	legacy := &store.Tour{PropertyID: tour.PropertyID, LandlordID: landlord, TenantID: tenant, ScheduledAt: env.now.Add(time.Hour), Status: "on-hold"}
	require.NoError(t, env.repo.CreateTour(context.Background(), legacy))

	rec := env.do(http.MethodGet, "/api/tours/"+legacy.ID, tenant, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[tourView](t, rec).Actions)

	code, _ = patchTour(env, legacy.ID, tenant, "cancelled")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpdateTourStatus_OwnershipCheckedBeforeBody(t *testing.T) {
	env := newTestEnv(t)
	tour := env.requestTour(env.createProperty())

	code, body := patchTour(env, tour.ID, stranger, "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Forbidden", body["error"])
}
