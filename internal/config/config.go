// Package config assembles the application settings from the environment.
//
// Loading is fail-open: an invalid value never stops the program. The default is
// used instead, a warning is logged, and the fallback is counted in the
// component's ConfigMetrics.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"feedwatch/internal/infra/notifier"
	"feedwatch/internal/infra/scraper"
	pkgconfig "feedwatch/internal/pkg/config"
	"feedwatch/internal/resilience/retry"
	"feedwatch/internal/usecase/fetch"
	"feedwatch/internal/usecase/notify"
	"feedwatch/internal/usecase/poll"
)

// AppConfig holds every setting a poll cycle needs.
type AppConfig struct {
	FeedsFile  string
	SeenFile   string
	HealthFile string

	// Webhook URLs. Empty disables the channel.
	DiscordWebhookURL string
	SlackWebhookURL   string

	MaxRetries        int
	RetryDelay        time.Duration
	RateLimitCooldown time.Duration
	RequestTimeout    time.Duration
	UserAgent         string

	SeenRetentionDays int
	FailureThreshold  int
	MaxItemsPerRun    int
	FetchConcurrency  int

	BatchPause time.Duration

	// RunTimeout bounds one poll cycle.
	RunTimeout time.Duration
}

// Default returns the settings used when the environment sets nothing.
func Default() AppConfig {
	return AppConfig{
		FeedsFile:         "config.json",
		SeenFile:          "seen_jobs.json",
		HealthFile:        "feed_health.json",
		MaxRetries:        3,
		RetryDelay:        2 * time.Second,
		RateLimitCooldown: 30 * time.Second,
		RequestTimeout:    30 * time.Second,
		UserAgent:         scraper.DefaultUserAgent,
		SeenRetentionDays: 30,
		FailureThreshold:  5,
		MaxItemsPerRun:    50,
		FetchConcurrency:  fetch.DefaultConcurrency,
		BatchPause:        notify.DefaultBatchPause,
		RunTimeout:        15 * time.Minute,
	}
}

// loader applies fallbacks and reports them.
type loader struct {
	logger   *slog.Logger
	metrics  *pkgconfig.ConfigMetrics
	fallback bool
}

func track[T any](l *loader, field string, result pkgconfig.ConfigLoadResult[T]) T {
	if result.FallbackApplied {
		l.fallback = true
		if l.metrics != nil {
			l.metrics.RecordValidationError(field)
			l.metrics.RecordFallback(field)
		}
		for _, warning := range result.Warnings {
			l.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	return result.Value
}

// webhook loads a webhook URL. The value carries a token, so the warning omits it.
// An invalid URL disables the channel.
func (l *loader) webhook(envKey, field string) string {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return ""
	}
	if err := pkgconfig.ValidateWebhookURL(raw); err != nil {
		track(l, field, pkgconfig.ConfigLoadResult[string]{
			Warnings:        []string{"Invalid " + envKey + ": " + err.Error() + ", channel disabled"},
			FallbackApplied: true,
		})
		return ""
	}
	return raw
}

func intRange(min, max int) func(int) error {
	return func(v int) error { return pkgconfig.ValidateIntRange(v, min, max) }
}

// LoadFromEnv builds the AppConfig. It always returns a usable configuration.
// metrics may be nil.
func LoadFromEnv(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) *AppConfig {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()
	l := &loader{logger: logger, metrics: metrics}

	cfg.FeedsFile = pkgconfig.LoadEnvString("FEEDS_CONFIG_FILE", cfg.FeedsFile)
	cfg.SeenFile = pkgconfig.LoadEnvString("SEEN_JOBS_FILE", cfg.SeenFile)
	cfg.HealthFile = pkgconfig.LoadEnvString("FEED_HEALTH_FILE", cfg.HealthFile)
	cfg.UserAgent = pkgconfig.LoadEnvString("USER_AGENT", cfg.UserAgent)

	cfg.DiscordWebhookURL = l.webhook("DISCORD_WEBHOOK_URL", "discord_webhook_url")
	cfg.SlackWebhookURL = l.webhook("SLACK_WEBHOOK_URL", "slack_webhook_url")

	cfg.MaxRetries = track(l, "max_retries",
		pkgconfig.LoadEnvInt("MAX_RETRIES", cfg.MaxRetries, intRange(1, 10)))
	cfg.RetryDelay = track(l, "retry_delay",
		pkgconfig.LoadEnvDuration("RETRY_DELAY", cfg.RetryDelay, pkgconfig.ValidatePositiveDuration))
	cfg.RateLimitCooldown = track(l, "rate_limit_cooldown",
		pkgconfig.LoadEnvDuration("RATE_LIMIT_COOLDOWN", cfg.RateLimitCooldown, pkgconfig.ValidatePositiveDuration))
	cfg.RequestTimeout = track(l, "request_timeout",
		pkgconfig.LoadEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout, pkgconfig.ValidatePositiveDuration))

	cfg.SeenRetentionDays = track(l, "seen_retention_days",
		pkgconfig.LoadEnvInt("SEEN_RETENTION_DAYS", cfg.SeenRetentionDays, intRange(1, 3650)))
	cfg.FailureThreshold = track(l, "failure_threshold",
		pkgconfig.LoadEnvInt("FAILURE_THRESHOLD", cfg.FailureThreshold, intRange(1, 100)))
	cfg.MaxItemsPerRun = track(l, "max_items_per_run",
		pkgconfig.LoadEnvInt("MAX_ITEMS_PER_RUN", cfg.MaxItemsPerRun, intRange(1, 1000)))
	cfg.FetchConcurrency = track(l, "fetch_concurrency",
		pkgconfig.LoadEnvInt("FETCH_CONCURRENCY", cfg.FetchConcurrency, intRange(1, 64)))

	cfg.BatchPause = track(l, "batch_pause",
		pkgconfig.LoadEnvDuration("NOTIFY_BATCH_PAUSE", cfg.BatchPause, pkgconfig.ValidateNonNegativeDuration))
	cfg.RunTimeout = track(l, "run_timeout",
		pkgconfig.LoadEnvDuration("RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, time.Minute, 4*time.Hour)
		}))

	if metrics != nil {
		metrics.SetFallbackActive(l.fallback)
		metrics.RecordLoadTimestamp()
	}
	return &cfg
}

// RetryPolicy returns the per-source retry policy.
func (c *AppConfig) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:       c.MaxRetries,
		BaseDelay:         c.RetryDelay,
		RateLimitCooldown: c.RateLimitCooldown,
	}
}

// ScraperConfig returns the HTTP client settings for feed requests.
func (c *AppConfig) ScraperConfig() scraper.Config {
	sc := scraper.DefaultConfig()
	sc.UserAgent = c.UserAgent
	sc.Timeout = c.RequestTimeout
	return sc
}

// FetchConfig returns the orchestrator settings.
func (c *AppConfig) FetchConfig() fetch.Config {
	return fetch.Config{MaxItemsPerRun: c.MaxItemsPerRun, Concurrency: c.FetchConcurrency}
}

// NotifyConfig returns the dispatcher settings.
func (c *AppConfig) NotifyConfig() notify.Config {
	nc := notify.DefaultConfig()
	nc.BatchPause = c.BatchPause
	return nc
}

// PollConfig returns the file locations and retention for a poll cycle.
func (c *AppConfig) PollConfig() poll.Config {
	return poll.Config{
		FeedsFile:         c.FeedsFile,
		HealthFile:        c.HealthFile,
		SeenFile:          c.SeenFile,
		SeenRetentionDays: c.SeenRetentionDays,
	}
}

// DiscordConfig returns the Discord webhook settings.
func (c *AppConfig) DiscordConfig() notifier.DiscordConfig {
	return notifier.DiscordConfig{
		Enabled:    c.DiscordWebhookURL != "",
		WebhookURL: c.DiscordWebhookURL,
	}
}

// SlackConfig returns the Slack webhook settings.
func (c *AppConfig) SlackConfig() notifier.SlackConfig {
	return notifier.SlackConfig{
		Enabled:    c.SlackWebhookURL != "",
		WebhookURL: c.SlackWebhookURL,
	}
}

// HasChannel reports whether at least one notification channel is configured.
func (c *AppConfig) HasChannel() bool {
	return c.DiscordWebhookURL != "" || c.SlackWebhookURL != ""
}
