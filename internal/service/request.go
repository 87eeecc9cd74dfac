package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
)

// Request is one dispatch trigger.
type Request struct {
	MaxEmails    int  `json:"max_emails" validate:"gt=0"`
	MinScore     int  `json:"min_score" validate:"gte=0"`
	StaggerDelay bool `json:"stagger_delay"`
}

var (
	requestValidator     *validator.Validate
	requestValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	requestValidatorOnce.Do(func() {
		vld := validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their JSON names.
		vld.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		requestValidator = vld
	})
	return requestValidator
}

// Validate checks the request's own constraints, then the configured ceiling.
func (r Request) Validate(maxRequest int) error {
	if err := getValidator().Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return appErrors.NewValidation("", err.Error())
	}
	if maxRequest > 0 && r.MaxEmails > maxRequest {
		return appErrors.NewValidation("max_emails", fmt.Sprintf("must not exceed %d", maxRequest))
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	var reason string
	switch fe.Tag() {
	case "gt":
		reason = "must be greater than " + fe.Param()
	case "gte":
		reason = "must be greater than or equal to " + fe.Param()
	default:
		reason = "failed " + fe.Tag() + " check"
	}
	return appErrors.NewValidation(fe.Field(), reason)
}
