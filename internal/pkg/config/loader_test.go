package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvInt(t *testing.T) {
	inRange := func(v int) error { return ValidateIntRange(v, 1, 10) }

	tests := []struct {
		name         string
		env          string
		want         int
		wantFallback bool
	}{
		{"unset uses default", "", 3, false},
		{"valid value", "5", 5, false},
		{"surrounding spaces are trimmed", " 7 ", 7, false},
		{"not a number", "five", 3, true},
		{"trailing garbage", "5x", 3, true},
		{"out of range", "11", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_MAX_RETRIES", tt.env)

			result := LoadEnvInt("TEST_MAX_RETRIES", 3, inRange)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantFallback {
				assert.Len(t, result.Warnings, 1)
				assert.Contains(t, result.Warnings[0], "TEST_MAX_RETRIES")
				assert.Contains(t, result.Warnings[0], "falling back to default '3'")
			} else {
				assert.Empty(t, result.Warnings)
			}
		})
	}
}

func TestLoadEnvDuration(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "45s")
	result := LoadEnvDuration("TEST_TIMEOUT", 30*time.Second, ValidatePositiveDuration)
	assert.Equal(t, 45*time.Second, result.Value)
	assert.False(t, result.FallbackApplied)

	t.Setenv("TEST_TIMEOUT", "-1s")
	result = LoadEnvDuration("TEST_TIMEOUT", 30*time.Second, ValidatePositiveDuration)
	assert.Equal(t, 30*time.Second, result.Value)
	assert.True(t, result.FallbackApplied)

	t.Setenv("TEST_TIMEOUT", "thirty")
	result = LoadEnvDuration("TEST_TIMEOUT", 30*time.Second, nil)
	assert.Equal(t, 30*time.Second, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback(t *testing.T) {
	t.Setenv("TEST_CRON", "*/5 * * * *")
	assert.Equal(t, "*/5 * * * *", LoadEnvWithFallback("TEST_CRON", "0 * * * *", ValidateCronSchedule).Value)

	t.Setenv("TEST_CRON", "every hour")
	result := LoadEnvWithFallback("TEST_CRON", "0 * * * *", ValidateCronSchedule)
	assert.Equal(t, "0 * * * *", result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvBool(t *testing.T) {
	t.Setenv("TEST_FLAG", "TRUE")
	assert.True(t, LoadEnvBool("TEST_FLAG", false).Value)

	t.Setenv("TEST_FLAG", "yes")
	result := LoadEnvBool("TEST_FLAG", false)
	assert.False(t, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_PATH", "")
	assert.Equal(t, "seen_jobs.json", LoadEnvString("TEST_PATH", "seen_jobs.json"))

	t.Setenv("TEST_PATH", "/data/seen.json")
	assert.Equal(t, "/data/seen.json", LoadEnvString("TEST_PATH", "seen_jobs.json"))
}
