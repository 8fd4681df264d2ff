package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("naming", validNaming)
	return v
}

// validNaming accepts a comma-separated list of "methods" and "fields".
func validNaming(fl validator.FieldLevel) bool {
	for _, part := range strings.Split(fl.Field().String(), ",") {
		switch strings.TrimSpace(part) {
		case "methods", "fields":
		default:
			return false
		}
	}
	return true
}
