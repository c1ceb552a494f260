// Package guard holds the input and error checks shared by the domain services.
package guard

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v against its `validate` tags and reports failures as a validation error
// whose details map field names to the failed rule.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errorbank.Internal("validation misconfigured", errorbank.WithCause(err))
	}
	details := make(map[string]any, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		details[name] = fe.Tag()
		fields = append(fields, name)
	}
	return errorbank.Validation("invalid "+strings.Join(fields, ", "), errorbank.WithDetails(details))
}

// Actor rejects mutations without an authenticated actor.
func Actor(actorID int64) error {
	if actorID <= 0 {
		return errorbank.Internal("mutation attempted without an actor")
	}
	return nil
}

// Storage classifies a repository failure. Unique index violations become validation
// errors carrying duplicate; anything else is a storage failure.
func Storage(span trace.Span, message, duplicate string, err error) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, message)
	}
	if duplicate != "" && database.IsUniqueViolation(err) {
		return errorbank.Validation(duplicate, errorbank.WithCause(err))
	}
	return errorbank.Storage(message, errorbank.WithCause(err))
}

// Required rejects a present but blank value for a mandatory field.
func Required(field string, v *string) error {
	if v != nil && strings.TrimSpace(*v) == "" {
		return errorbank.Validation(field+" is required", errorbank.WithDetail(field, "required"))
	}
	return nil
}
