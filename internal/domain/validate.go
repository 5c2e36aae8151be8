package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrValidation is the root of every input validation failure.
var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Field   string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Details)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Details)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func Invalid(field string, details string) error {
	return &ValidationError{Field: field, Details: details}
}

type enumerated interface {
	Valid() bool
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
			value, ok := fl.Field().Interface().(enumerated)
			return ok && value.Valid()
		})
		validate = v
	})
	return validate
}

// Validate checks the struct tags of value and reports the first offending
// field as a ValidationError.
func Validate(value any) error {
	err := validatorInstance().Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fe.Namespace(), Details: describeTag(fe)}
	}
	return &ValidationError{Details: err.Error()}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "enum":
		return fmt.Sprintf("has unsupported value %v", fe.Value())
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "datetime":
		return "must use the format " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
