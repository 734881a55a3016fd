package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// worker flag names: lowercase, digits and dashes, starting with a letter
	paramKeyRegex = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	// values are handed to the worker as single argv entries; control
	// characters have no business there
	paramValueRegex = regexp.MustCompile(`^[^\x00-\x08\x0a-\x1f]*$`)
)

func paramKeyValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return paramKeyRegex.MatchString(val)
}

func paramValueValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return paramValueRegex.MatchString(val)
}

func jobStateValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	switch val {
	case "":
		fallthrough
	case "running":
		fallthrough
	case "completed":
		fallthrough
	case "failed":
		fallthrough
	case "cancelled":
		return true
	default:
		return false
	}
}
