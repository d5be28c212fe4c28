package config

import "errors"

// Sentinel errors for configuration failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidConfig indicates the configuration is syntactically
	// or semantically invalid (bad YAML, unknown keys, out-of-range values).
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrNotFound indicates an explicitly requested config file is missing.
	ErrNotFound = errors.New("config: file not found")
)
