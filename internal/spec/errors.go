package spec

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is the kind for all factory validation failures.
//
// Validation failures are surfaced to the caller immediately and are never
// retried internally.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ConfigError wraps a single validation failure with the offending field.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidConfiguration.Error(), e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfiguration.Error(), e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
