package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom
// rules.
//
// Struct tag validation covers the declarative constraints; custom rules
// cover what tags cannot express (here, the shape of the type-specific
// store option maps).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Unknown option keys in the memory section are configuration typos;
	// reject them instead of silently ignoring them.
	known := map[string]bool{
		"max_link_depth":       true,
		"transfer_buffer_size": true,
	}
	for key := range cfg.Store.Memory {
		if !known[key] {
			return fmt.Errorf("store.memory: unknown option %q", key)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
