// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services accept primitives and domain types, never *http.Request, and
// return apperror values instead of HTTP status codes. The handler package
// owns the translation to HTTP.
//
// DEPENDENCY INJECTION:
// Every service takes repository interfaces, not *sqlite.DB. Tests pass
// in-memory fakes (see fakes_test.go); main wires the SQLite implementation.
package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/medtrack/internal/apperror"
)

// hhmmPattern matches a 24-hour clock time: 00:00 through 23:59.
var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// newValidator returns the struct/field validator with the app's custom tags
// registered:
//
//	hhmm → "HH:MM" 24-hour clock time
//
// validator.Validate caches struct metadata and is safe for concurrent use,
// so one instance per service is enough.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// RegisterValidation only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
	return v
}

// validationError turns the first validator failure into an apperror with a
// message a client can show.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating input: %w", err)
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperror.ValidationFailed(field, field+" is required")
	case "hhmm":
		return apperror.ValidationFailed(field, field+" must be in HH:MM 24-hour format")
	case "max":
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %s characters or less", field, fe.Param()))
	case "email":
		return apperror.ValidationFailed(field, "Email is not valid")
	default:
		return apperror.ValidationFailed(field, field+" is invalid")
	}
}

// trimmedOrNil trims s and turns a blank result into nil, which is stored as
// SQL NULL and encoded as JSON null.
func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
