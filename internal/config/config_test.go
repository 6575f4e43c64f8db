package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	pkgconfig "feedwatch/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *pkgconfig.ConfigMetrics {
	t.Helper()
	return pkgconfig.NewConfigMetricsWith(prometheus.NewRegistry(), "feedwatch_test")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	m := newTestMetrics(t)
	cfg := LoadFromEnv(slog.Default(), m)

	assert.Equal(t, Default(), *cfg)
	assert.False(t, cfg.HasChannel())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(m.LoadTimestamp), 0.0)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("FEEDS_CONFIG_FILE", "/etc/feedwatch/feeds.yaml")
	t.Setenv("SEEN_JOBS_FILE", "/var/lib/feedwatch/seen.json")
	t.Setenv("FEED_HEALTH_FILE", "/var/lib/feedwatch/health.json")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("RETRY_DELAY", "500ms")
	t.Setenv("RATE_LIMIT_COOLDOWN", "1m")
	t.Setenv("SEEN_RETENTION_DAYS", "90")
	t.Setenv("FAILURE_THRESHOLD", "10")
	t.Setenv("MAX_ITEMS_PER_RUN", "200")
	t.Setenv("NOTIFY_BATCH_PAUSE", "0s")
	t.Setenv("RUN_TIMEOUT", "30m")

	cfg := LoadFromEnv(slog.Default(), newTestMetrics(t))

	assert.Equal(t, "/etc/feedwatch/feeds.yaml", cfg.FeedsFile)
	assert.Equal(t, "/var/lib/feedwatch/seen.json", cfg.SeenFile)
	assert.Equal(t, "/var/lib/feedwatch/health.json", cfg.HealthFile)
	assert.True(t, cfg.HasChannel())
	assert.True(t, cfg.DiscordConfig().Enabled)
	assert.False(t, cfg.SlackConfig().Enabled)
	assert.Equal(t, 90, cfg.SeenRetentionDays)
	assert.Equal(t, 10, cfg.FailureThreshold)
	assert.Equal(t, 30*time.Minute, cfg.RunTimeout)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, time.Minute, policy.RateLimitCooldown)

	assert.Equal(t, 200, cfg.FetchConfig().MaxItemsPerRun)
	assert.Equal(t, time.Duration(0), cfg.NotifyConfig().BatchPause)
	assert.Equal(t, 90, cfg.PollConfig().SeenRetentionDays)
}

func TestLoadFromEnv_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
		check func(t *testing.T, cfg *AppConfig)
	}{
		{"retries above range", "MAX_RETRIES", "11", "max_retries",
			func(t *testing.T, cfg *AppConfig) { assert.Equal(t, 3, cfg.MaxRetries) }},
		{"retries not a number", "MAX_RETRIES", "three", "max_retries",
			func(t *testing.T, cfg *AppConfig) { assert.Equal(t, 3, cfg.MaxRetries) }},
		{"negative delay", "RETRY_DELAY", "-1s", "retry_delay",
			func(t *testing.T, cfg *AppConfig) { assert.Equal(t, 2*time.Second, cfg.RetryDelay) }},
		{"zero threshold", "FAILURE_THRESHOLD", "0", "failure_threshold",
			func(t *testing.T, cfg *AppConfig) { assert.Equal(t, 5, cfg.FailureThreshold) }},
		{"run timeout too short", "RUN_TIMEOUT", "10s", "run_timeout",
			func(t *testing.T, cfg *AppConfig) { assert.Equal(t, 15*time.Minute, cfg.RunTimeout) }},
		{"webhook without scheme", "SLACK_WEBHOOK_URL", "hooks.slack.com/services/x", "slack_webhook_url",
			func(t *testing.T, cfg *AppConfig) { assert.False(t, cfg.SlackConfig().Enabled) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			m := newTestMetrics(t)
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			cfg := LoadFromEnv(logger, m)

			require.NotNil(t, cfg)
			tt.check(t, cfg)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues(tt.field)))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackActive))
			assert.Contains(t, buf.String(), "Configuration fallback applied")
		})
	}
}

func TestLoadFromEnv_WebhookWarningOmitsURL(t *testing.T) {
	t.Setenv("DISCORD_WEBHOOK_URL", "ftp://discord.example/secret-token")
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := LoadFromEnv(logger, nil)

	assert.Empty(t, cfg.DiscordWebhookURL)
	assert.Contains(t, buf.String(), "DISCORD_WEBHOOK_URL")
	assert.NotContains(t, buf.String(), "secret-token")
}
