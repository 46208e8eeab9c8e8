package api

import (
	"errors"
	"net/http"

	"rento/logger"
	"rento/store"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// bindAndValidate decodes the body into req and runs the struct validator.
// The returned error is an *echo.HTTPError for the error handler to render.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}
	return nil
}

// storeError maps repository errors to responses. what names the entity in
// the 404 text.
func storeError(c echo.Context, err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return jsonError(c, http.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrConflict):
		return jsonError(c, http.StatusConflict, what+" was changed by someone else, reload and try again")
	}
	logger.FromEcho(c).Error("store failure", zap.String("entity", what), zap.Error(err))
	return jsonError(c, http.StatusInternalServerError, "Internal server error")
}
