package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ArowuTest/healthclaims-backend/internal/apperrors"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the claimdecision and userrole tags to gin's
// validator and reports field names by their JSON keys.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("claimdecision", func(fl validator.FieldLevel) bool {
			return models.ClaimStatus(fl.Field().String()).IsDecision()
		})
		_ = v.RegisterValidation("userrole", func(fl validator.FieldLevel) bool {
			return models.UserRole(fl.Field().String()).Valid()
		})
	})
}

// bindingError converts a ShouldBind failure into a ValidationError
func bindingError(err error) error {
	verr := apperrors.Validation("invalid request")

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), describe(fe))
		}
		return verr
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return verr.Add(field, fmt.Sprintf("must be a %s", typeErr.Type.Kind()))
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return verr.Add("body", "is not valid JSON")
	}
	return verr.Add("body", err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "claimdecision":
		return "must be approved or rejected"
	case "userrole":
		return "must be patient or insurer"
	default:
		return "is invalid"
	}
}
