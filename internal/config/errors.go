package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// ConfigError reports a configuration problem together with the fix an
// operator should apply.
type ConfigError struct {
	Field string
	Msg   string
	Fix   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Msg)
}

// Hint returns the remediation text shown to the operator.
func (e *ConfigError) Hint() string { return e.Fix }

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }
