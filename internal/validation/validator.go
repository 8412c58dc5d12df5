// Package validation checks alignment options, reference ayahs and API input
// with validator/v10. Failures come back as VALIDATION domain errors keyed by
// JSON field name.
//
// Besides the stock tags it understands:
//
//	surah     an int from 1 to 114
//	strategy  greedy, dp or hybrid
package validation

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/munajjam/munajjam/internal/domain"
	domainerrors "github.com/munajjam/munajjam/internal/errors"
	"github.com/munajjam/munajjam/internal/quran"
)

// Validator is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

var shared = sync.OnceValue(New)

// Validate checks s with a process-wide Validator.
func Validate(s any) error {
	return shared().Validate(s)
}

// New builds a Validator with the engine's tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)

	_ = v.RegisterValidation("surah", func(fl validator.FieldLevel) bool {
		return fl.Field().CanInt() && quran.ValidSurah(int(fl.Field().Int()))
	})
	_ = v.RegisterValidation("strategy", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseStrategy(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// Validate returns nil or a *domainerrors.Error whose details map each
// failing field to a message.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describe(fe)
	}
	parts := make([]string, 0, len(details))
	for field, msg := range details {
		parts = append(parts, field+" "+msg)
	}
	slices.Sort(parts)

	return domainerrors.ValidationWithDetails("validation failed: "+strings.Join(parts, "; "), details)
}

func describe(fe validator.FieldError) string {
	p := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "surah":
		return "must be a surah number from 1 to 114"
	case "strategy":
		return "must be greedy, dp or hybrid"
	case "oneof":
		return "must be one of: " + p
	case "min", "gte":
		return "must be at least " + p
	case "max", "lte":
		return "must be at most " + p
	case "gt":
		return "must be greater than " + p
	case "lt":
		return "must be less than " + p
	case "gtefield":
		return "must not be before " + strings.ToLower(p)
	case "dive":
		return "has invalid elements"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
