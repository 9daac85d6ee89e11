package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldError describes a single failed binding rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var bindingErrorMessages = map[string]string{
	"required": "field is required",
	"email":    "invalid email format",
	"oneof":    "value is not one of the allowed options",
	"min":      "value is too short",
	"max":      "value is too long",
}

// RegisterValidationNames makes binding errors report json field names
// instead of Go struct field names.
func RegisterValidationNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// FieldErrors flattens validator errors into field/message pairs. Returns
// nil when err is not a binding validation error.
func FieldErrors(err error) []FieldError {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		msg := bindingErrorMessages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, FieldError{Field: e.Field(), Message: msg})
	}
	return out
}
