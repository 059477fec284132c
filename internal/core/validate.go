package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form name so messages match what the user typed into.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "category", IsCategory)
	mustRegister(v, "account", IsAccount)
	mustRegister(v, "txtype", IsType)
	return v
}

func mustRegister(v *validator.Validate, tag string, allowed func(string) bool) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return allowed(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

func sentinelFor(tag string) error {
	switch tag {
	case "required":
		return ErrMissingField
	case "datetime":
		return ErrInvalidDate
	case "max":
		return ErrDescriptionTooLong
	case "category":
		return ErrUnknownCategory
	case "account":
		return ErrUnknownAccount
	case "txtype":
		return ErrUnknownType
	default:
		return fmt.Errorf("failed %q check", tag)
	}
}

// validateStruct runs the tag rules and converts failures into a ValidationError.
func validateStruct(s any) (*ValidationError, error) {
	ve := &ValidationError{}
	err := validate.Struct(s)
	if err == nil {
		return ve, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	for _, fe := range verrs {
		ve.add(fe.Field(), fmt.Sprint(fe.Value()), sentinelFor(fe.Tag()))
	}
	return ve, nil
}
