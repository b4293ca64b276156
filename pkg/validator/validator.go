// Package validator wraps go-playground/validator with the tags and field
// naming used by the waitlist API.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// simpleEmailPattern accepts local@domain.tld with no whitespace.
var simpleEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var engine = sync.OnceValue(newEngine)

// ValidationError is one failed rule. Field is the JSON name.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

func (e ValidationError) String() string {
	if e.Param == "" {
		return fmt.Sprintf("%s failed on %s", e.Field, e.Tag)
	}
	return fmt.Sprintf("%s failed on %s=%s", e.Field, e.Tag, e.Param)
}

// ValidationErrors collects every failed rule of one struct.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct runs the validate tags of s. Rule failures come back as
// ValidationErrors; anything else (e.g. a non-struct) is returned as is.
func ValidateStruct(s any) error {
	err := engine().Struct(s)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return out
}

// IsSimpleEmail reports whether value looks like an email address.
func IsSimpleEmail(value string) bool {
	return simpleEmailPattern.MatchString(value)
}

func newEngine() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return IsSimpleEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
