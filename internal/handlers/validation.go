package handlers

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/errandsexpress/backend/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report field names as their json tags so errors line up with payloads.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and folds failures into the shared
// field-error shape.
func validateStruct(s any) *models.ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verr := models.NewValidationError()
	var invalid validator.ValidationErrors
	if !asValidationErrors(err, &invalid) {
		verr.Add("request", "invalid request body")
		return verr
	}
	for _, fe := range invalid {
		verr.Add(fe.Field(), messageFor(fe))
	}
	return verr
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}
