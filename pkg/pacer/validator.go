// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pacer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one parameter outside its programmable range.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (v ValidationError) Error() string {
	return v.Field + ": " + v.Message
}

// ValidationErrors collects every failing field of a ParameterSet.
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "invalid parameters: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(parameterSetRules, ParameterSet{})
	return v
}

// parameterSetRules holds the cross-field constraints
func parameterSetRules(sl validator.StructLevel) {
	p, ok := sl.Current().Interface().(ParameterSet)
	if !ok {
		return
	}
	if p.Mode.RateAdaptive() && p.MaxSensorRate < p.LowerRateLimit {
		sl.ReportError(p.MaxSensorRate, "max_sensor_rate", "MaxSensorRate", "gtefield", "lower_rate_limit")
	}
	if p.Hysteresis != 0 && p.Hysteresis >= p.LowerRateLimit {
		sl.ReportError(p.Hysteresis, "hysteresis", "Hysteresis", "ltfield", "lower_rate_limit")
	}
}

// ValidateParameters checks p against the board's programmable ranges.
// Values accepted here always encode; the converse is not true.
func ValidateParameters(p ParameterSet) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: describeRule(fe),
			Value:   fe.Value(),
		})
	}
	return out
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%v is below minimum %s", fe.Value(), fe.Param())
	case "max":
		return fmt.Sprintf("%v is above maximum %s", fe.Value(), fe.Param())
	case "gtefield":
		return fmt.Sprintf("%v must be at least %s", fe.Value(), fe.Param())
	case "ltfield":
		return fmt.Sprintf("%v must be below %s", fe.Value(), fe.Param())
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}
