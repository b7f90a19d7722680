// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"bolify/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	mobileRegex  = regexp.MustCompile(`^\d{10}$`)
	httpURLRegex = regexp.MustCompile(`^https?://`)
)

// BcryptMaxBytes is the longest password bcrypt will hash.
const BcryptMaxBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so messages line up with the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "mobile", func(fl validator.FieldLevel) bool {
		return mobileRegex.MatchString(fl.Field().String())
	})
	mustRegister(v, "objectid", func(fl validator.FieldLevel) bool {
		return models.IsValidID(fl.Field().String())
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "httpurl", func(fl validator.FieldLevel) bool {
		return httpURLRegex.MatchString(fl.Field().String())
	})
	// bcrypt rejects inputs over 72 bytes, which "max" (runes) lets through.
	mustRegister(v, "bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= BcryptMaxBytes
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// Struct validates s against its `validate` tags. Schema violations come back
// as a 422 AppError carrying one message per offending field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewInternalError(err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return models.NewFieldValidationError(fields)
}

// Var validates a single value against tag, labelling failures with field.
func Var(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.NewInternalError(err)
	}
	return models.NewFieldValidationError(map[string]string{field: fieldMessage(field, verrs[0])})
}

func message(fe validator.FieldError) string {
	return fieldMessage(fe.Field(), fe)
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "mobile":
		return fmt.Sprintf("%s must be a 10-digit number", field)
	case "bcryptlen":
		return fmt.Sprintf("%s must be at most %d bytes", field, BcryptMaxBytes)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return fmt.Sprintf("%s is not a valid id", field)
	case "httpurl":
		return fmt.Sprintf("%s must be an http(s) URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
