package service

import (
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

// storeError maps repository failures onto the API taxonomy.
func storeError(err error, resource, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, resource+" not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, "failed to "+op+" "+resource)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func validate(v *validator.Validate, payload interface{}, message string) error {
	if err := v.Struct(payload); err != nil {
		return validationError(err, message)
	}
	return nil
}
