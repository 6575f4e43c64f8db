package worker

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.CronSchedule != "0 * * * *" {
		t.Errorf("CronSchedule = %q, want hourly", cfg.CronSchedule)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", cfg.Timezone)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad schedule", func(c *Config) { c.CronSchedule = "every hour" }, "cron schedule"},
		{"six fields", func(c *Config) { c.CronSchedule = "0 0 * * * *" }, "cron schedule"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"privileged port", func(c *Config) { c.HealthPort = 80 }, "health port"},
		{"metrics port out of range", func(c *Config) { c.MetricsPort = 70000 }, "metrics port"},
		{"same ports", func(c *Config) { c.MetricsPort = c.HealthPort }, "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CRON_SCHEDULE", "*/15 * * * *")
	t.Setenv("WORKER_TIMEZONE", "Europe/Berlin")
	t.Setenv("WORKER_HEALTH_PORT", "8081")
	t.Setenv("METRICS_PORT", "8082")

	metrics := NewWorkerMetricsWith(prometheus.NewRegistry())
	cfg, warnings := LoadConfigFromEnv(slog.Default(), metrics)

	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	want := Config{CronSchedule: "*/15 * * * *", Timezone: "Europe/Berlin", HealthPort: 8081, MetricsPort: 8082}
	if *cfg != want {
		t.Errorf("config = %+v, want %+v", *cfg, want)
	}
	if got := testutil.ToFloat64(metrics.FallbackActive); got != 0 {
		t.Errorf("fallback_active = %v, want 0", got)
	}
}

func TestLoadConfigFromEnv_FallsBack(t *testing.T) {
	t.Setenv("CRON_SCHEDULE", "not a schedule")
	t.Setenv("WORKER_TIMEZONE", "Nowhere/City")
	t.Setenv("WORKER_HEALTH_PORT", "abc")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	metrics := NewWorkerMetricsWith(prometheus.NewRegistry())

	cfg, warnings := LoadConfigFromEnv(logger, metrics)

	if len(warnings) != 3 {
		t.Errorf("warnings = %d, want 3: %v", len(warnings), warnings)
	}
	if *cfg != DefaultConfig() {
		t.Errorf("config = %+v, want defaults", *cfg)
	}
	for _, field := range []string{"cron_schedule", "timezone", "health_port"} {
		if got := testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues(field)); got != 1 {
			t.Errorf("fallbacks_total{field=%q} = %v, want 1", field, got)
		}
	}
	if got := testutil.ToFloat64(metrics.FallbackActive); got != 1 {
		t.Errorf("fallback_active = %v, want 1", got)
	}
	if !strings.Contains(buf.String(), "Invalid CRON_SCHEDULE='not a schedule'") {
		t.Errorf("warning not logged: %s", buf.String())
	}
}

func TestLoadConfigFromEnv_PortClash(t *testing.T) {
	t.Setenv("WORKER_HEALTH_PORT", "9500")
	t.Setenv("METRICS_PORT", "9500")

	metrics := NewWorkerMetricsWith(prometheus.NewRegistry())
	cfg, _ := LoadConfigFromEnv(slog.Default(), metrics)

	if cfg.HealthPort != 9091 || cfg.MetricsPort != 9090 {
		t.Errorf("ports = %d/%d, want defaults 9091/9090", cfg.HealthPort, cfg.MetricsPort)
	}
	if got := testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("ports")); got != 1 {
		t.Errorf("fallbacks_total{field=ports} = %v, want 1", got)
	}
}
