// Package validate runs struct-tag validation on operation inputs and turns failures into
// client-facing validation errors.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names so messages match what clients sent.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return val
}

// Struct validates s and returns an apperr validation error describing every failed field.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	return apperr.Validation(translate(err))
}

func translate(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	messages := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "email":
			messages = append(messages, "invalid email format")
		case "min":
			messages = append(messages, field+" must be at least "+fe.Param())
		case "max":
			messages = append(messages, field+" must be at most "+fe.Param())
		case "len":
			messages = append(messages, field+" must be exactly "+fe.Param()+" characters")
		case "numeric":
			messages = append(messages, field+" must contain only numbers")
		case "oneof":
			messages = append(messages, field+" must be one of: "+fe.Param())
		case "uuid":
			messages = append(messages, field+" must be a valid id")
		default:
			messages = append(messages, field+" is invalid")
		}
	}
	return strings.Join(messages, ", ")
}
