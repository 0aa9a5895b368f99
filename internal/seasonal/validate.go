package seasonal

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "seasonalcli/internal/errors"
)

var tableIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// newValidator builds the Options validator with custom tags and
// JSON field names in messages.
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("fieldname", isFieldName)
	v.RegisterValidation("tableid", isTableID)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// isFieldName accepts value field names that are safe inside file names
func isFieldName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if strings.TrimSpace(name) == "" {
		return false
	}
	return !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`+"\x00")
}

// isTableID accepts alphanumeric table identifiers such as d11 or s12
func isTableID(fl validator.FieldLevel) bool {
	return tableIDPattern.MatchString(fl.Field().String())
}

// validateOptions checks the options of an Adjust call
func validateOptions(v *validator.Validate, opts Options) error {
	err := v.Struct(opts)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "invalid options", err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, formatValidationError(fe))
	}
	return apperrors.NewValidationError(strings.Join(messages, "; "))
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, err.Param())
	case "fieldname":
		return fmt.Sprintf("%s %q is not a usable field name", field, err.Value())
	case "tableid":
		return fmt.Sprintf("%s %q must be alphanumeric", field, err.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
