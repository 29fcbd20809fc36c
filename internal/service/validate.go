package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// recordValidator returns the shared validator, reporting fields by their JSON names.
func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateRecord checks v's struct tags and converts the first failure to a domain.ValidationError.
func validateRecord(v any) error {
	err := recordValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return domain.NewValidationError(fe.Field(), fe.Value(), friendlyMessage(fe))
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// requireID rejects blank dream ids.
func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.NewValidationError("dreamId", id, "is required")
	}
	return nil
}
