// Package validator converts ozzo-validation failures into LayeredErrors
package validator

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/KOMKZ/tickerdesk/errcode"
)

// ErrValidation common validation failure (module 10, class validation)
var ErrValidation = errcode.Register(errcode.New(
	10, 1010, "common", "error.common.validation_failed", "invalid parameters",
	http.StatusBadRequest,
).WithClass(errcode.ClassValidation))

// Validatable anything with a Validate method
type Validatable interface {
	Validate() error
}

// ValidateRequest validates and converts ozzo errors into ErrValidation
func ValidateRequest(req Validatable) error {
	err := req.Validate()
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return ConvertValidationError(fieldErrs)
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	return ErrValidation.Wrap(err)
}

// ConvertValidationError keeps field-level messages in Data["fields"]
// and builds a readable message such as "date: must be DD-MM-YYYY"
func ConvertValidationError(fieldErrs validation.Errors) error {
	fields := make(map[string]string, len(fieldErrs))
	names := make([]string, 0, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
			names = append(names, field)
		}
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+": "+fields[n])
	}
	return ErrValidation.WithMsg(strings.Join(parts, "; ")).WithData("fields", fields)
}
