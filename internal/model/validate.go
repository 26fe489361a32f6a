package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct-tag validation and reports the first failing field as
// a validation DomainError.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewValidationError(err.Error())
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return NewValidationError(fmt.Sprintf("%s is required", fe.Field()))
	case "email":
		return NewValidationError(fmt.Sprintf("%s must be a valid email address", fe.Field()))
	case "url":
		return NewValidationError(fmt.Sprintf("%s must be a valid URL", fe.Field()))
	case "oneof":
		return NewValidationError(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	case "min", "gte":
		return NewValidationError(fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
	case "max", "lte":
		return NewValidationError(fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
	default:
		return NewValidationError(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
