package api

import (
	"net/http"

	"rento/logger"
	"rento/store"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type createPropertyRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Address     string `json:"address" validate:"max=300"`
	City        string `json:"city" validate:"max=100"`
	MonthlyRent int64  `json:"monthly_rent" validate:"gte=0"`
	Bedrooms    int    `json:"bedrooms" validate:"gte=0,lte=50"`
}

type propertyView struct {
	ID          string `json:"id"`
	LandlordID  string `json:"landlord_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	MonthlyRent int64  `json:"monthly_rent"`
	Bedrooms    int    `json:"bedrooms"`
}

func newPropertyView(p *store.Property) propertyView {
	return propertyView{
		ID:          p.ID,
		LandlordID:  p.LandlordID,
		Title:       p.Title,
		Description: p.Description,
		Address:     p.Address,
		City:        p.City,
		MonthlyRent: p.MonthlyRent,
		Bedrooms:    p.Bedrooms,
	}
}

func (s *Server) createProperty(c echo.Context) error {
	var req createPropertyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p := &store.Property{
		LandlordID:  CallerID(c),
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		MonthlyRent: req.MonthlyRent,
		Bedrooms:    req.Bedrooms,
	}
	if err := s.repo.CreateProperty(c.Request().Context(), p); err != nil {
		return storeError(c, err, "Property")
	}

	logger.FromEcho(c).Info("property created", zap.String("property_id", p.ID))
	return c.JSON(http.StatusCreated, newPropertyView(p))
}
