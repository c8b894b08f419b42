// Package errs holds error kinds shared across the bootstrap components.
package errs

import (
	"errors"
	"fmt"
)

// ConfigError reports a condition the user must fix before anything can run,
// such as offline mode without a wheel cache or a missing executable. It is
// never retried.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config builds a ConfigError from a format string.
func Config(format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// WrapConfig builds a ConfigError that wraps err.
func WrapConfig(err error, format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...), Err: err}
}

// IsConfig reports whether err is, or wraps, a ConfigError.
func IsConfig(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
