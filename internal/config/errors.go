package config

import (
	"errors"
	"fmt"
)

// ErrConfig is the sentinel wrapped by every configuration error.
var ErrConfig = errors.New("configuration error")

// ConfigError reports a missing or invalid configuration key.
type ConfigError struct {
	// Key is the dotted key path, e.g. "release_config.output_base_path".
	Key string
	// Reason describes the problem; empty means the key is missing.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

// MissingKey creates a ConfigError for an absent required key.
func MissingKey(key string) *ConfigError {
	return &ConfigError{Key: key}
}

// InvalidKey creates a ConfigError for a key with an unusable value.
func InvalidKey(key string, err error, format string, args ...any) *ConfigError {
	return &ConfigError{Key: key, Reason: fmt.Sprintf(format, args...), Err: err}
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = "required key is missing"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", ErrConfig, e.Key, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Key, msg)
}

// Is makes errors.Is(err, ErrConfig) true for every ConfigError.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

func (e *ConfigError) Unwrap() error { return e.Err }
