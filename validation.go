package tsomap

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared by the loaders; validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = validator.New()

// formatValidationError turns the first validator failure into a short
// "Field: reason" error.
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s characters, got %q", field, e.Param(), e.Value())
		case "max":
			return fmt.Errorf("%s: must be at most %s characters, got %q", field, e.Param(), e.Value())
		case "alpha":
			return fmt.Errorf("%s: must contain letters only, got %q", field, e.Value())
		default:
			return fmt.Errorf("%s: failed %q validation", field, e.Tag())
		}
	}
	return err
}
