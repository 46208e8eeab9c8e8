package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"rento/workflow/applications"
	"rento/workflow/tours"

	"github.com/go-playground/validator/v10"
)

// requestValidator plugs go-playground/validator into echo's c.Validate.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("application_status", func(fl validator.FieldLevel) bool {
		s, ok := applications.Parse(fl.Field().String())
		// draft is a creation state, never a target
		return ok && s != applications.StatusDraft
	})
	_ = v.RegisterValidation("tour_status", func(fl validator.FieldLevel) bool {
		_, ok := tours.Normalize(fl.Field().String())
		return ok
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// validationMessage flattens validator errors into one line for the client.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "application_status", "tour_status":
			parts = append(parts, fmt.Sprintf("%s has an unknown value %q", fe.Field(), fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}
