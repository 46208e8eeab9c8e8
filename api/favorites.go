package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type addFavoriteRequest struct {
	PropertyID string `json:"property_id" validate:"required"`
}

func (s *Server) addFavorite(c echo.Context) error {
	var req addFavoriteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.repo.GetProperty(ctx, req.PropertyID); err != nil {
		return storeError(c, err, "Property")
	}
	if err := s.repo.AddFavorite(ctx, CallerID(c), req.PropertyID); err != nil {
		return storeError(c, err, "Favorite")
	}
	return c.JSON(http.StatusCreated, echo.Map{"ok": true, "property_id": req.PropertyID})
}

func (s *Server) removeFavorite(c echo.Context) error {
	if err := s.repo.RemoveFavorite(c.Request().Context(), CallerID(c), c.Param("propertyId")); err != nil {
		return storeError(c, err, "Favorite")
	}
	return c.NoContent(http.StatusNoContent)
}
