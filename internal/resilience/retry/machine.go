package retry

import (
	"context"
	"time"
)

// Policy holds the parameters of the retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay scales backoff: transport failures wait BaseDelay × attempt,
	// server errors wait BaseDelay × attempt × 2.
	BaseDelay time.Duration

	// RateLimitCooldown is the wait after a 429 without a usable Retry-After header.
	RateLimitCooldown time.Duration

	// MaxRetryAfter caps a server-requested Retry-After. Zero means
	// RetryAfterCapFactor × RateLimitCooldown.
	MaxRetryAfter time.Duration
}

// RetryAfterCapFactor derives the default Retry-After cap from RateLimitCooldown.
const RetryAfterCapFactor = 4

func (p Policy) retryAfterCap() time.Duration {
	if p.MaxRetryAfter > 0 {
		return p.MaxRetryAfter
	}
	return RetryAfterCapFactor * p.RateLimitCooldown
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		BaseDelay:         2 * time.Second,
		RateLimitCooldown: 30 * time.Second,
	}
}

// State is a state of the retry machine.
type State int

const (
	// StateAttempting means the next attempt has not been made yet.
	StateAttempting State = iota
	// StateBackoff means the caller must wait Decision.Delay and attempt again.
	StateBackoff
	// StatePermanentFail is terminal: the source returned a non-retryable result.
	StatePermanentFail
	// StateSuccess is terminal: the attempt succeeded.
	StateSuccess
	// StateExhausted is terminal: every attempt was used without success.
	StateExhausted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StatePermanentFail:
		return "permanent_fail"
	case StateSuccess:
		return "success"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further attempts follow s.
func (s State) Terminal() bool {
	return s == StatePermanentFail || s == StateSuccess || s == StateExhausted
}

// AttemptResult is the input to Machine.Step.
type AttemptResult struct {
	Class Class

	// StatusCode is the HTTP status received, 0 when there was no response.
	StatusCode int

	// RetryAfter is the server-requested wait; only meaningful when HasRetryAfter is set.
	RetryAfter    time.Duration
	HasRetryAfter bool
}

// ResultFrom builds an AttemptResult from the raw pieces of an attempt.
// retryAfter is the raw Retry-After header value.
func ResultFrom(status int, err error, retryAfter string) AttemptResult {
	r := AttemptResult{
		Class:      Classify(status, err),
		StatusCode: status,
	}
	if r.Class == ClassRateLimited {
		r.RetryAfter, r.HasRetryAfter = ParseRetryAfter(retryAfter)
	}
	return r
}

// Decision is the output of Machine.Step.
type Decision struct {
	State State

	// Attempt is the 1-based number of the attempt that produced this decision.
	Attempt int

	// Delay is the wait before the next attempt. It is zero unless State is StateBackoff.
	Delay time.Duration

	// LastStatus is the most recent HTTP status observed in this fetch, nil if none was.
	LastStatus *int

	// RetryAfterCapped is set when the server asked for a longer wait than the
	// policy allows and Delay was shortened.
	RetryAfterCapped bool
}

// Machine is the retry state machine for one fetch. It is not safe for concurrent use.
type Machine struct {
	policy     Policy
	state      State
	attempt    int
	lastStatus *int
}

// NewMachine returns a Machine in StateAttempting. MaxAttempts below 1 is treated as 1.
func NewMachine(p Policy) *Machine {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return &Machine{policy: p, state: StateAttempting}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Attempts returns the number of attempts consumed so far.
func (m *Machine) Attempts() int {
	return m.attempt
}

// Step consumes one attempt result and returns the next decision.
// Calling Step after a terminal state returns that state again without consuming
// an attempt.
func (m *Machine) Step(r AttemptResult) Decision {
	if m.state.Terminal() {
		return m.decision(0)
	}

	m.attempt++
	if r.StatusCode != 0 {
		code := r.StatusCode
		m.lastStatus = &code
	}

	var delay time.Duration
	capped := false
	switch r.Class {
	case ClassSuccess:
		m.state = StateSuccess
		return m.decision(0)
	case ClassPermanent, ClassParse:
		m.state = StatePermanentFail
		return m.decision(0)
	case ClassRateLimited:
		delay = m.policy.RateLimitCooldown
		if r.HasRetryAfter {
			delay = r.RetryAfter
			if limit := m.policy.retryAfterCap(); limit > 0 && delay > limit {
				delay, capped = limit, true
			}
		}
	case ClassServer:
		delay = m.policy.BaseDelay * time.Duration(m.attempt) * 2
	default:
		delay = m.policy.BaseDelay * time.Duration(m.attempt)
	}

	if m.attempt >= m.policy.MaxAttempts {
		m.state = StateExhausted
		return m.decision(0)
	}
	m.state = StateBackoff
	d := m.decision(delay)
	d.RetryAfterCapped = capped
	return d
}

func (m *Machine) decision(delay time.Duration) Decision {
	d := Decision{State: m.state, Attempt: m.attempt, Delay: delay}
	if m.lastStatus != nil {
		code := *m.lastStatus
		d.LastStatus = &code
	}
	return d
}

// Sleeper waits between attempts.
type Sleeper interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d).
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// ContextSleeper sleeps on a real timer and wakes early on context cancellation.
type ContextSleeper struct{}

// Sleep implements Sleeper.
func (ContextSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
