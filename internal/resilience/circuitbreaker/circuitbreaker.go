// Package circuitbreaker guards webhook channels with github.com/sony/gobreaker.
// After a run of failed batches a channel is short-circuited for a cool-down
// period, then a single probe batch decides whether it recovers.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config describes one channel breaker.
type Config struct {
	Name string

	// ConsecutiveFailures opens the circuit. Zero is treated as 1.
	ConsecutiveFailures uint32

	// Cooldown is how long an open circuit rejects batches before probing.
	Cooldown time.Duration

	// Probes is the number of batches let through while half-open.
	Probes uint32

	// OnStateChange is called after every transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// WebhookConfig returns the breaker settings for a notification channel: five
// failed batches in a row open it for five minutes.
func WebhookConfig(channel string) Config {
	return Config{
		Name:                "webhook-" + channel,
		ConsecutiveFailures: 5,
		Cooldown:            5 * time.Minute,
		Probes:              1,
	}
}

// CircuitBreaker is a gobreaker.CircuitBreaker with a channel-oriented API.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

// New builds a breaker from cfg.
func New(cfg Config) *CircuitBreaker {
	trip := max(cfg.ConsecutiveFailures, 1)
	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.Probes,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("webhook circuit changed state",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	})}
}

// Run calls fn unless the circuit is open. fn's error counts as a failure.
func (b *CircuitBreaker) Run(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

func (b *CircuitBreaker) Name() string { return b.cb.Name() }

func (b *CircuitBreaker) State() gobreaker.State { return b.cb.State() }

// IsOpen reports whether batches are currently being rejected outright.
func (b *CircuitBreaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// IsRejection reports whether err came from the breaker rather than the channel.
func IsRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
