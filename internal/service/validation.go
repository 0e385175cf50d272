package service

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
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct validates s and folds every failure into ve.
func checkStruct(ve *ValidationError, s any) {
	collect(ve, "", validate.Struct(s))
}

// checkVar validates a single value under field's name.
func checkVar(ve *ValidationError, field string, value any, tag string) {
	collect(ve, field, validate.Var(value, tag))
}

func collect(ve *ValidationError, field string, err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		ve.Add(field, err.Error())
		return
	}
	for _, fe := range verrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		if ve.Has(name) {
			continue
		}
		ve.Add(name, message(name, fe.Tag(), fe.Param()))
	}
}

// message renders validator tags in the wording API clients already expect.
func message(field, tag, param string) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, param)
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", label, param)
	case "len":
		return fmt.Sprintf("The %s field must be %s characters.", label, param)
	case "numeric", "number":
		return fmt.Sprintf("The %s field must be a number.", label)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}

func takenMessage(field string) string {
	return fmt.Sprintf("The %s has already been taken.", strings.ReplaceAll(field, "_", " "))
}

func invalidSelection(field string) string {
	return fmt.Sprintf("The selected %s is invalid.", strings.ReplaceAll(field, "_", " "))
}
