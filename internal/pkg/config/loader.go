// Package config provides fail-open environment loaders.
//
// Every loader returns a usable value: an unset variable yields the default
// silently, and an unparsable or invalid one yields the default together with a
// warning. Callers log the warnings and count them in ConfigMetrics; they never
// abort on a bad environment value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigLoadResult is the outcome of loading one environment value.
//
// Fields:
//   - Value: the loaded value, or the default when FallbackApplied is set
//   - Warnings: one message per fallback applied
//   - FallbackApplied: true if the default replaced an invalid value
type ConfigLoadResult[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

// loadEnv reads envKey, parses it and validates it.
// The warning format is "Invalid {key}='{value}': {reason}, falling back to default '{default}'".
func loadEnv[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) ConfigLoadResult[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return ConfigLoadResult[T]{Value: defaultValue}
	}

	fallback := func(reason error) ConfigLoadResult[T] {
		return ConfigLoadResult[T]{
			Value:           defaultValue,
			Warnings:        []string{fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'", envKey, raw, reason, defaultValue)},
			FallbackApplied: true,
		}
	}

	value, err := parse(raw)
	if err != nil {
		return fallback(err)
	}
	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(err)
		}
	}
	return ConfigLoadResult[T]{Value: value}
}

// LoadEnvString returns the variable's value, or defaultValue when it is unset.
// No validation is performed.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string and validates it.
//
// Example:
//
//	result := LoadEnvWithFallback("CRON_SCHEDULE", "0 * * * *", ValidateCronSchedule)
//	schedule := result.Value
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult[string] {
	return loadEnv(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a Go duration string ("30s", "5m", "1h30m").
//
// Example:
//
//	result := LoadEnvDuration("REQUEST_TIMEOUT", 30*time.Second, ValidatePositiveDuration)
//	timeout := result.Value
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult[time.Duration] {
	return loadEnv(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer.
//
// Example:
//
//	result := LoadEnvInt("MAX_RETRIES", 3, func(v int) error { return ValidateIntRange(v, 1, 10) })
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult[int] {
	return loadEnv(envKey, defaultValue, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvBool loads a boolean ("1", "t", "true", "0", "f", "false" in any case).
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult[bool] {
	return loadEnv(envKey, defaultValue, func(s string) (bool, error) {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return v, nil
	}, nil)
}
