package service

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// NewValidator returns a validator with the domain tags registered:
// civildate (YYYY-MM-DD), clocktime (HH:MM), qrtype and plan.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("civildate", func(fl validator.FieldLevel) bool {
		_, err := civil.Parse(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clocktime", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("qrtype", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseQRDocumentType(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
		_, ok := FindPlan(fl.Field().String())
		return ok
	})
	return v
}
