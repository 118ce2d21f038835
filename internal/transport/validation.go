package transport

import (
	"fmt"
	"strings"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the domain tags used in request binding tags.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("resource_type", validateResourceType); err != nil {
		return err
	}
	return v.RegisterValidation("booking_date", validateBookingDate)
}

// Values are trimmed the same way the services trim them.
func validateResourceType(fl validator.FieldLevel) bool {
	_, err := entity.ParseResourceType(strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func validateBookingDate(fl validator.FieldLevel) bool {
	return entity.Date(strings.TrimSpace(fl.Field().String())).Valid()
}
