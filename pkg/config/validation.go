package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against its struct tags and the
// cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if err := validateDatabase(&cfg.Samples.Database); err != nil {
		return fmt.Errorf("samples.database: %w", err)
	}

	for i, d := range cfg.Plugins {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("plugins[%d]: name is required", i)
		}
	}

	return nil
}

// formatValidationErrors renders each failed field as
// "<namespace>: failed on the '<tag>' tag" so messages name the offending key.
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := strings.TrimPrefix(fe.Namespace(), "Config.")
		msg := fmt.Sprintf("%s: failed on the '%s' tag", ns, fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}
