package api

import (
	"errors"
	"net/http"
	"time"

	"rento/logger"
	"rento/metrics"
	"rento/store"
	"rento/workflow/applications"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const entityApplication = "application"

type createApplicationRequest struct {
	PropertyID string `json:"property_id" validate:"required"`
	Message    string `json:"message" validate:"max=2000"`
	// Draft saves without submitting.
	Draft bool `json:"draft"`
}

type updateApplicationStatusRequest struct {
	Status string `json:"status" validate:"required,application_status"`
	Note   string `json:"note" validate:"max=280"`
}

type applicationView struct {
	ID          string                       `json:"id"`
	PropertyID  string                       `json:"property_id"`
	ApplicantID string                       `json:"applicant_id"`
	Status      applications.Status          `json:"status"`
	Message     string                       `json:"message,omitempty"`
	Timeline    []applications.TimelineEntry `json:"timeline"`
	SubmittedAt *time.Time                   `json:"submitted_at"`
	ReviewedAt  *time.Time                   `json:"reviewed_at"`
	DecisionAt  *time.Time                   `json:"decision_at"`
	// Next lists the statuses the landlord may move the application to.
	Next []applications.Status `json:"next_statuses,omitempty"`
}

func (s *Server) newApplicationView(a *store.Application, forLandlord bool) applicationView {
	status := s.readApplicationStatus(a)
	v := applicationView{
		ID:          a.ID,
		PropertyID:  a.PropertyID,
		ApplicantID: a.ApplicantID,
		Status:      status,
		Message:     a.Message,
		Timeline:    a.Timeline,
		SubmittedAt: a.SubmittedAt,
		ReviewedAt:  a.ReviewedAt,
		DecisionAt:  a.DecisionAt,
	}
	if v.Timeline == nil {
		v.Timeline = []applications.TimelineEntry{}
	}
	if forLandlord {
		v.Next = applications.AllowedTransitions(status)
	}
	return v
}

// readApplicationStatus normalizes stored text and counts values that only
// resolved through the fallback.
func (s *Server) readApplicationStatus(a *store.Application) applications.Status {
	status, known := applications.Parse(a.Status)
	if !known {
		s.metrics.UnknownStatus.WithLabelValues(entityApplication).Inc()
		s.log.Warn("unknown stored application status",
			zap.String("application_id", a.ID),
			zap.String("status", a.Status))
	}
	return status
}

func (s *Server) createApplication(c echo.Context) error {
	var req createApplicationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	caller := CallerID(c)

	prop, err := s.repo.GetProperty(ctx, req.PropertyID)
	if err != nil {
		return storeError(c, err, "Property")
	}
	if prop.LandlordID == caller {
		return jsonError(c, http.StatusForbidden, "You cannot apply to your own property")
	}

	now := s.now().UTC()
	status := applications.StatusSubmitted
	if req.Draft {
		status = applications.StatusDraft
	}
	a := &store.Application{
		PropertyID:  prop.ID,
		ApplicantID: caller,
		Status:      applications.ToStorage(status),
		Message:     req.Message,
		Timeline:    applications.AppendTimelineEntry(nil, applications.NewTimelineEntry(status, now, "")),
	}
	if status == applications.StatusSubmitted {
		a.SubmittedAt = &now
	}
	if err := s.repo.CreateApplication(ctx, a); err != nil {
		return storeError(c, err, "Application")
	}
	a.Property = *prop

	logger.FromEcho(c).Info("application created",
		zap.String("application_id", a.ID),
		zap.String("status", a.Status))
	return c.JSON(http.StatusCreated, s.newApplicationView(a, false))
}

func (s *Server) getApplication(c echo.Context) error {
	a, err := s.repo.GetApplication(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(c, err, "Application")
	}

	caller := CallerID(c)
	isLandlord := a.Property.LandlordID == caller
	if !isLandlord && a.ApplicantID != caller {
		return jsonError(c, http.StatusForbidden, "Forbidden")
	}
	return c.JSON(http.StatusOK, s.newApplicationView(a, isLandlord))
}

func (s *Server) updateApplicationStatus(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromEcho(c)

	a, err := s.repo.GetApplication(ctx, c.Param("id"))
	if err != nil {
		return storeError(c, err, "Application")
	}
	if a.Property.LandlordID != CallerID(c) {
		return jsonError(c, http.StatusForbidden, "Only the landlord can change an application's status")
	}

	var req updateApplicationStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	current := s.readApplicationStatus(a)
	now := s.now().UTC()
	change, err := applications.PlanTransition(a.Status, req.Status, now, req.Note)
	if err != nil {
		var te *applications.TransitionError
		if errors.As(err, &te) {
			s.metrics.ObserveTransition(entityApplication, string(te.From), string(te.To), metrics.OutcomeRejected)
		}
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	upd := store.ApplicationStatusUpdate{
		From:     a.Status,
		To:       applications.ToStorage(change.To),
		Timeline: applications.AppendTimelineEntry(a.Timeline, change.Entry),
	}
	reviewedAt, decisionAt := a.ReviewedAt, a.DecisionAt
	if a.SubmittedAt == nil && (change.To == applications.StatusSubmitted || change.Timestamps.Reviewed) {
		upd.SubmittedAt = &now
	}
	if change.Timestamps.Reviewed {
		reviewedAt = &now
		upd.ReviewedAt = &now
	}
	if change.Timestamps.Decision {
		decisionAt = &now
		upd.DecisionAt = &now
	}

	if err := s.repo.UpdateApplicationStatus(ctx, a.ID, upd); err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.metrics.ObserveTransition(entityApplication, string(current), string(change.To), metrics.OutcomeConflict)
		}
		return storeError(c, err, "Application")
	}

	s.metrics.ObserveTransition(entityApplication, string(current), string(change.To), metrics.OutcomeApplied)
	log.Info("application status changed",
		zap.String("application_id", a.ID),
		zap.String("from", string(current)),
		zap.String("to", string(change.To)))

	return c.JSON(http.StatusOK, echo.Map{
		"ok":          true,
		"status":      change.To,
		"reviewed_at": reviewedAt,
		"decision_at": decisionAt,
	})
}
