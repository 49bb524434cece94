package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report problems by environment variable name rather than struct field.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

func validateConfig(c mainConfig) []string {
	sections := []any{c.EnvVars, c.Cors, c.Provider, c.Gate}
	if c.Gate.Strategy == StrategySession {
		sections = append(sections, c.OAuth, c.Security)
	}

	var problems []string
	for _, section := range sections {
		problems = append(problems, describe(validate.Struct(section))...)
	}

	if c.FrontendURL != "" && Origin(c.FrontendURL) == "" {
		problems = append(problems, frontendURLEnvVar+" must be an absolute http(s) URL")
	}
	if c.SchoolURL != "" && Origin(c.SchoolURL) == "" {
		problems = append(problems, schoolURLEnvVar+" must be an absolute http(s) URL")
	}
	return problems
}

func describe(err error) []string {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		problems = append(problems, describeField(fe))
	}
	return problems
}

func describeField(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return name + " is required"
	case "url":
		return name + " must be an absolute URL"
	case "numeric":
		return name + " must be a number"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must contain at least %s value(s)", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt", "lte":
		return fmt.Sprintf("%s is out of range (%s %s)", name, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}
