package worker

import (
	"errors"
	"fmt"
	"log/slog"

	"feedwatch/internal/pkg/config"
)

// Config holds the serve-mode settings: when poll cycles run and where the
// health and metrics endpoints listen.
type Config struct {
	// CronSchedule is a standard 5-field cron expression.
	CronSchedule string

	// Timezone is the IANA location the schedule is evaluated in.
	Timezone string

	HealthPort  int
	MetricsPort int
}

// DefaultConfig returns hourly polling in UTC.
func DefaultConfig() Config {
	return Config{
		CronSchedule: "0 * * * *",
		Timezone:     "UTC",
		HealthPort:   9091,
		MetricsPort:  9090,
	}
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health and metrics ports must differ: both %d", c.HealthPort))
	}

	return errors.Join(errs...)
}

// LoadConfigFromEnv reads CRON_SCHEDULE, WORKER_TIMEZONE, WORKER_HEALTH_PORT and
// METRICS_PORT. Invalid values fall back to the defaults with a warning and a
// fallback metric; the returned configuration is always usable. The warnings
// are returned as well so callers can report them.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*Config, []string) {
	cfg := DefaultConfig()
	var all []string

	report := func(field string, warnings []string) {
		all = append(all, warnings...)
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field)
		for _, warning := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	schedule := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = schedule.Value
	if schedule.FallbackApplied {
		report("cron_schedule", schedule.Warnings)
	}

	tz := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	if tz.FallbackApplied {
		report("timezone", tz.Warnings)
	}

	port := func(v int) error { return config.ValidateIntRange(v, 1024, 65535) }

	health := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, port)
	cfg.HealthPort = health.Value
	if health.FallbackApplied {
		report("health_port", health.Warnings)
	}

	metricsPort := config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, port)
	cfg.MetricsPort = metricsPort.Value
	if metricsPort.FallbackApplied {
		report("metrics_port", metricsPort.Warnings)
	}

	if cfg.HealthPort == cfg.MetricsPort {
		defaults := DefaultConfig()
		report("ports", []string{fmt.Sprintf(
			"WORKER_HEALTH_PORT and METRICS_PORT are both %d, falling back to defaults %d and %d",
			cfg.HealthPort, defaults.HealthPort, defaults.MetricsPort)})
		cfg.HealthPort = defaults.HealthPort
		cfg.MetricsPort = defaults.MetricsPort
	}

	metrics.SetFallbackActive(len(all) > 0)
	metrics.RecordLoadTimestamp()

	return &cfg, all
}
