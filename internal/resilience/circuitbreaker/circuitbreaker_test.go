package circuitbreaker

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

var errWebhook = errors.New("webhook down")

func fail() error { return errWebhook }
func ok() error   { return nil }

func TestWebhookConfig(t *testing.T) {
	cfg := WebhookConfig("slack")
	if cfg.Name != "webhook-slack" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.ConsecutiveFailures != 5 || cfg.Cooldown != 5*time.Minute || cfg.Probes != 1 {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	b := New(cfg)
	if b.Name() != "webhook-slack" {
		t.Errorf("Name() = %q", b.Name())
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("new breaker state = %v, want closed", b.State())
	}
}

func TestRun_PassesThroughChannelErrors(t *testing.T) {
	b := New(WebhookConfig("discord"))

	if err := b.Run(ok); err != nil {
		t.Errorf("Run(ok) = %v", err)
	}
	if err := b.Run(fail); !errors.Is(err, errWebhook) {
		t.Errorf("Run(fail) = %v, want webhook error", err)
	}
	if b.IsOpen() {
		t.Error("one failure must not open the circuit")
	}
}

func TestRun_OpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []gobreaker.State
	cfg := WebhookConfig("discord")
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}
	b := New(cfg)

	for range 4 {
		_ = b.Run(fail)
	}
	_ = b.Run(ok)
	if b.IsOpen() {
		t.Fatal("a delivered batch resets the failure streak")
	}

	for i := range 5 {
		if err := b.Run(fail); !errors.Is(err, errWebhook) {
			t.Errorf("failure %d: got %v", i, err)
		}
	}
	if !b.IsOpen() {
		t.Fatalf("state = %v, want open", b.State())
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("transitions = %v, want [open]", transitions)
	}

	err := b.Run(func() error {
		t.Error("channel called while the circuit is open")
		return nil
	})
	if !IsRejection(err) {
		t.Errorf("Run while open = %v, want rejection", err)
	}
}

func TestRun_ProbeAfterCooldown(t *testing.T) {
	tests := []struct {
		name  string
		probe func() error
		want  gobreaker.State
	}{
		{name: "probe delivered", probe: ok, want: gobreaker.StateClosed},
		{name: "probe failed", probe: fail, want: gobreaker.StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(Config{Name: "probe", ConsecutiveFailures: 2, Cooldown: 50 * time.Millisecond, Probes: 1})
			_ = b.Run(fail)
			_ = b.Run(fail)
			if !b.IsOpen() {
				t.Fatalf("state = %v, want open", b.State())
			}

			time.Sleep(80 * time.Millisecond)
			if b.State() != gobreaker.StateHalfOpen {
				t.Fatalf("state after cooldown = %v, want half-open", b.State())
			}

			_ = b.Run(tt.probe)
			if b.State() != tt.want {
				t.Errorf("state after probe = %v, want %v", b.State(), tt.want)
			}
		})
	}
}

func TestNew_ZeroThresholdTripsOnFirstFailure(t *testing.T) {
	b := New(Config{Name: "eager", Cooldown: time.Minute})
	_ = b.Run(fail)
	if !b.IsOpen() {
		t.Errorf("state = %v, want open", b.State())
	}
}

func TestIsRejection(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{gobreaker.ErrOpenState, true},
		{gobreaker.ErrTooManyRequests, true},
		{fmt.Errorf("send: %w", gobreaker.ErrOpenState), true},
		{errWebhook, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsRejection(tt.err); got != tt.want {
			t.Errorf("IsRejection(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
