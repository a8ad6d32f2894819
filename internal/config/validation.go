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
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		return name
	})
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	return v
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// Validate checks cfg and returns an ErrInvalidConfig describing every
// failing key.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return validateRemoteURL(cfg.RemoteURL)
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func validateRemoteURL(raw string) error {
	if raw == "" {
		return nil
	}
	if err := validate.Var(raw, "url"); err != nil {
		return fmt.Errorf("%w: remote_url must be a valid URL", ErrInvalidConfig)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	key := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return key + " must not be empty"
	case "loglevel":
		return key + " must be one of debug, info, warn, error"
	case "oneof":
		return key + " must be one of " + fe.Param()
	case "gte":
		return key + " must be at least " + fe.Param()
	case "lte":
		return key + " must be at most " + fe.Param()
	default:
		return key + " is invalid (" + fe.Tag() + ")"
	}
}
