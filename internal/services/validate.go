package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/jsonschema"
)

var inputValidator = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput checks struct tags and returns a validation error listing
// every failing field by its JSON name.
func validateInput(in any) error {
	err := inputValidator.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.Validation("invalid input: %v", err)
	}
	details := make([]apierr.Detail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apierr.Detail{Field: fieldPath(fe), Message: describeRule(fe)})
	}
	return apierr.ValidationDetails("invalid input", details)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}

// schemaError converts a JSON document validation failure into field details.
func schemaError(prefix string, err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return apierr.Validation("%s: %v", prefix, err)
	}
	details := make([]apierr.Detail, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		field := prefix
		if fe.Field != "" && fe.Field != "(root)" {
			field = prefix + "." + fe.Field
		}
		details = append(details, apierr.Detail{Field: field, Message: fe.Message})
	}
	return apierr.ValidationDetails("invalid "+prefix, details)
}
