// Package validator wraps go-playground/validator with the custom rules
// the scheduling API needs beyond gin's built-in binding tags.
package validator

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	// Wall-clock HH:MM, used for office hours and schedule blocks.
	v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

func (val *Validator) Validate(obj interface{}) error {
	err := val.v.Struct(obj)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		fe := errs[0]
		return fmt.Errorf("field %s failed validation rule %q", fe.Field(), fe.Tag())
	}
	return err
}
