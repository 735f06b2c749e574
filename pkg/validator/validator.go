package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestValidator plugs go-playground validation into echo's Bind/Validate
// hook for the DTO structs.
type RequestValidator struct {
	v *validator.Validate
}

// New creates a request validator. Violations are reported under json field
// names so error messages match the request body the client actually sent.
func New() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

// Validate checks a bound request struct against its validate tags.
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}
