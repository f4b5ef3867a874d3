// Package validation runs the structural stage of action validation: field
// presence and format checks declared as struct tags. Every violation is
// reported, in the order the validator visits the fields.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"anchorcore/pkg/domain"
)

// Validator checks request structs against their `validate` tags.
type Validator interface {
	Validate(v any) []string
}

// StructValidator is the go-playground backed Validator.
type StructValidator struct {
	vld *validator.Validate
}

// New constructs a StructValidator with the custom tags used by action requests:
//
//	decimal  - the string parses as a decimal number within the amount bounds
//	           of domain.ParseDecimal (sign is not checked here)
//	asset_id - "<scheme>:<code>[:<issuer>]" with a non-empty scheme and code
func New() (*StructValidator, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())
	vld.RegisterTagNameFunc(jsonName)

	if err := vld.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		str := fl.Field().String()
		if str == "" {
			return true
		}
		_, err := domain.ParseDecimal(str)
		return err == nil
	}); err != nil {
		return nil, fmt.Errorf("register decimal: %w", err)
	}

	if err := vld.RegisterValidation("asset_id", func(fl validator.FieldLevel) bool {
		str := fl.Field().String()
		if str == "" {
			return true
		}
		parts := strings.Split(str, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return false
		}
		for _, p := range parts {
			if strings.TrimSpace(p) == "" {
				return false
			}
		}
		return true
	}); err != nil {
		return nil, fmt.Errorf("register asset_id: %w", err)
	}

	return &StructValidator{vld: vld}, nil
}

// MustNew is New for package-level wiring where registration cannot fail.
func MustNew() *StructValidator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate returns one message per violated constraint. A nil or non-struct
// value yields a single message.
func (s *StructValidator) Validate(v any) []string {
	err := s.vld.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, format(fe))
	}
	return out
}

var formatters = map[string]func(field, param string) string{
	"required": func(field, _ string) string {
		return fmt.Sprintf("%s is required", field)
	},
	"required_with": func(field, param string) string {
		return fmt.Sprintf("%s is required with %s", field, param)
	},
	"max": func(field, param string) string {
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	},
	"oneof": func(field, param string) string {
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	},
	"decimal": func(field, _ string) string {
		return fmt.Sprintf("%s is not a valid decimal", field)
	},
	"asset_id": func(field, _ string) string {
		return fmt.Sprintf("%s is not a valid asset identifier", field)
	},
}

func format(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	if f, ok := formatters[fe.Tag()]; ok {
		return f(field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s check", field, fe.Tag())
}

// fieldPath drops the root struct name from a namespace such as
// "Request.amount_in.amount".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	default:
		return name
	}
}
