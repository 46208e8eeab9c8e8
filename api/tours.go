package api

import (
	"errors"
	"net/http"
	"time"

	"rento/logger"
	"rento/metrics"
	"rento/store"
	"rento/workflow/tours"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const entityTour = "tour"

type createTourRequest struct {
	PropertyID  string    `json:"property_id" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes" validate:"max=500"`
}

type updateTourStatusRequest struct {
	Status string `json:"status" validate:"required,tour_status"`
}

type tourView struct {
	ID          string         `json:"id"`
	PropertyID  string         `json:"property_id"`
	LandlordID  string         `json:"landlord_id"`
	TenantID    string         `json:"tenant_id"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	Status      tours.Status   `json:"status"`
	Notes       string         `json:"notes,omitempty"`
	Role        tours.Role     `json:"role"`
	Actions     []tours.Action `json:"actions"`
}

// roleOf resolves the caller's side of a tour from ownership.
func roleOf(t *store.Tour, callerID string) (tours.Role, bool) {
	switch callerID {
	case t.LandlordID:
		return tours.RoleLandlord, true
	case t.TenantID:
		return tours.RoleTenant, true
	}
	return "", false
}

// readTourStatus returns the stored status and whether it is one the engine
// knows. Unknown values are counted and offer no actions.
func (s *Server) readTourStatus(t *store.Tour) (tours.Status, bool) {
	status, ok := tours.Normalize(t.Status)
	if !ok {
		s.metrics.UnknownStatus.WithLabelValues(entityTour).Inc()
		s.log.Warn("unknown stored tour status",
			zap.String("tour_id", t.ID),
			zap.String("status", t.Status))
		return tours.Status(t.Status), false
	}
	return status, true
}

func (s *Server) newTourView(t *store.Tour, role tours.Role) tourView {
	status, known := s.readTourStatus(t)
	actions := []tours.Action{}
	if known {
		actions = tours.ActionsFor(role, status)
	}
	return tourView{
		ID:          t.ID,
		PropertyID:  t.PropertyID,
		LandlordID:  t.LandlordID,
		TenantID:    t.TenantID,
		ScheduledAt: t.ScheduledAt,
		Status:      status,
		Notes:       t.Notes,
		Role:        role,
		Actions:     actions,
	}
}

func (s *Server) createTour(c echo.Context) error {
	var req createTourRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	caller := CallerID(c)

	if !req.ScheduledAt.After(s.now()) {
		return jsonError(c, http.StatusBadRequest, "scheduled_at must be in the future")
	}

	prop, err := s.repo.GetProperty(ctx, req.PropertyID)
	if err != nil {
		return storeError(c, err, "Property")
	}
	if prop.LandlordID == caller {
		return jsonError(c, http.StatusForbidden, "You cannot request a tour of your own property")
	}

	t := &store.Tour{
		PropertyID:  prop.ID,
		LandlordID:  prop.LandlordID,
		TenantID:    caller,
		ScheduledAt: req.ScheduledAt.UTC(),
		Status:      string(tours.StatusRequested),
		Notes:       req.Notes,
	}
	if err := s.repo.CreateTour(ctx, t); err != nil {
		return storeError(c, err, "Tour")
	}

	logger.FromEcho(c).Info("tour requested", zap.String("tour_id", t.ID))
	return c.JSON(http.StatusCreated, s.newTourView(t, tours.RoleTenant))
}

func (s *Server) getTour(c echo.Context) error {
	t, err := s.repo.GetTour(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(c, err, "Tour")
	}
	role, ok := roleOf(t, CallerID(c))
	if !ok {
		return jsonError(c, http.StatusForbidden, "Forbidden")
	}
	return c.JSON(http.StatusOK, s.newTourView(t, role))
}

func (s *Server) updateTourStatus(c echo.Context) error {
	ctx := c.Request().Context()

	t, err := s.repo.GetTour(ctx, c.Param("id"))
	if err != nil {
		return storeError(c, err, "Tour")
	}
	role, ok := roleOf(t, CallerID(c))
	if !ok {
		return jsonError(c, http.StatusForbidden, "Forbidden")
	}

	var req updateTourStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	current, known := s.readTourStatus(t)
	next, _ := tours.Normalize(req.Status)
	if !known || !tours.IsValidTransition(role, current, next) {
		s.metrics.ObserveTransition(entityTour, string(current), string(next), metrics.OutcomeRejected)
		return jsonError(c, http.StatusBadRequest, (&tours.TransitionError{Role: role, From: current, To: next}).Error())
	}

	if err := s.repo.UpdateTourStatus(ctx, t.ID, t.Status, string(next)); err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.metrics.ObserveTransition(entityTour, string(current), string(next), metrics.OutcomeConflict)
		}
		return storeError(c, err, "Tour")
	}
	s.metrics.ObserveTransition(entityTour, string(current), string(next), metrics.OutcomeApplied)
	logger.FromEcho(c).Info("tour status changed",
		zap.String("tour_id", t.ID),
		zap.String("role", string(role)),
		zap.String("from", string(current)),
		zap.String("to", string(next)))

	return c.JSON(http.StatusOK, echo.Map{
		"ok":      true,
		"status":  next,
		"actions": tours.ActionsFor(role, next),
	})
}
