package api

import (
	"net/http"
	"strings"
	"time"

	"rento/store"

	"github.com/labstack/echo/v4"
)

type createMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	PropertyID  string `json:"property_id"`
	Body        string `json:"body" validate:"required,max=4000"`
}

type messageView struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	PropertyID  string    `json:"property_id,omitempty"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) createMessage(c echo.Context) error {
	var req createMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	caller := CallerID(c)
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return jsonError(c, http.StatusBadRequest, "body is required")
	}
	if req.RecipientID == caller {
		return jsonError(c, http.StatusBadRequest, "You cannot message yourself")
	}

	ctx := c.Request().Context()
	if req.PropertyID != "" {
		if _, err := s.repo.GetProperty(ctx, req.PropertyID); err != nil {
			return storeError(c, err, "Property")
		}
	}

	m := &store.Message{
		SenderID:    caller,
		RecipientID: req.RecipientID,
		PropertyID:  req.PropertyID,
		Body:        body,
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return storeError(c, err, "Message")
	}
	return c.JSON(http.StatusCreated, messageView{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		PropertyID:  m.PropertyID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	})
}
