package scene

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that every object carries the geometric fields the
// exporter needs. The first failing object is reported as a
// *ValidationError.
func (d *Document) Validate() error {
	for _, p := range d.Objects() {
		if err := validateObject(p); err != nil {
			return err
		}
	}
	return nil
}

func validateObject(p Placed) error {
	err := validate.Struct(p.Object)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Layer: p.Layer, Object: p.Index, Reason: err.Error()}
	}

	fe := fieldErrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	reason := "failed " + fe.Tag()
	if fe.Tag() == "required" {
		reason = "missing required value"
	}
	return &ValidationError{Layer: p.Layer, Object: p.Index, Field: field, Reason: reason}
}
