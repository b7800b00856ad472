package models

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var optionSets = map[string][]string{
	"duration":        DurationOptions,
	"studio":          StudioOptions,
	"production_year": ProductionYearOptions,
	"genre":           GenreOptions,
	"us_box_office":   USBoxOfficeOptions,
}

// ValidationError carries a message per offending field, keyed by form name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid movie input: " + strings.Join(parts, "; ")
}

// Validator checks a MovieInput against the fixed enumerations.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("form")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Only fails if the tag is registered twice.
	_ = v.RegisterValidation("movieopt", func(fl validator.FieldLevel) bool {
		opts, ok := optionSets[fl.Param()]
		if !ok {
			return false
		}
		return slices.Contains(opts, fl.Field().String())
	})

	return &Validator{v: v}
}

func (v *Validator) Validate(in MovieInput) error {
	err := v.v.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = friendlyMessage(fe)
	}
	return out
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "movieopt":
		return "must be one of the listed options"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must not exceed %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}
