package config

import "errors"

var (
	ErrNoConfigFile        = errors.New("config file not found")
	ErrUnknownKey          = errors.New("unknown config key")
	ErrNoRepositories      = errors.New("no repositories configured")
	ErrDuplicateRepository = errors.New("duplicate repository")
	ErrMissingSecret       = errors.New("required secret not set")
	ErrInvalidValue        = errors.New("invalid value")
)

// ConfigError reports missing or invalid configuration. It is always fatal.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config: " + e.Field + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
