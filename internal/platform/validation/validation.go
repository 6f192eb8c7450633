// Package validation wires go-playground/validator with the field rules of
// the appointment API and plugs it into echo.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/consultorio/turnos/internal/platform/apperr"
	"github.com/consultorio/turnos/internal/platform/calendar"
)

var messages = map[string]string{
	"required":     "es obligatorio",
	"digits":       "debe contener solo dígitos",
	"len":          "debe tener exactamente %s caracteres",
	"alphaunicode": "debe contener solo letras",
	"contains":     "debe contener '%s'",
	"gt":           "debe ser mayor a %s",
	"min":          "debe ser como mínimo %s",
	"max":          "debe ser como máximo %s",
	"hhmm":         "debe tener el formato HH:MM",
	"ddmmyyyy":     "debe tener el formato DD-MM-YYYY",
	"dive":         "es inválido",
}

// Validator validates request structs.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the custom tags registered. Field names in
// messages come from the json tag.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("digits", validateDigits)
	_ = v.RegisterValidation("hhmm", validateTime)
	_ = v.RegisterValidation("ddmmyyyy", validateDate)
	return &Validator{v: v}
}

// Validate implements echo.Validator. Failures come back as an apperr
// validation error listing every offending field.
func (v *Validator) Validate(i interface{}) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation("%v", err)
	}
	return apperr.Validation("%s", strings.Join(Messages(ve), "; "))
}

// Var validates a single value against a tag expression.
func (v *Validator) Var(field interface{}, tag string) error {
	return v.v.Var(field, tag)
}

// Messages renders each field error as "<field> <reason>".
func Messages(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "es inválido"
		}
		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, fe.Param())
		}
		out = append(out, fe.Field()+" "+msg)
	}
	return out
}

func validateDigits(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validateTime(fl validator.FieldLevel) bool {
	_, err := calendar.ParseTime(fl.Field().String())
	return err == nil
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := calendar.ParseDate(fl.Field().String())
	return err == nil
}
