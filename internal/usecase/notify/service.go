package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/infra/notifier"
	"feedwatch/internal/resilience/circuitbreaker"
	"feedwatch/internal/resilience/retry"
	"feedwatch/internal/utils/text"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

const (
	// BatchSize is the maximum number of items delivered in one message.
	BatchSize = 10

	// DefaultBatchPause is the pause between consecutive batches.
	DefaultBatchPause = time.Second

	// DefaultSendTimeout bounds one channel delivery, retries included.
	DefaultSendTimeout = 2 * time.Minute
)

// Config holds the dispatcher settings.
type Config struct {
	// BatchPause is the pause between batches. Zero disables the pause.
	BatchPause time.Duration

	// SendTimeout bounds each channel delivery. Zero or less uses DefaultSendTimeout.
	SendTimeout time.Duration
}

// DefaultConfig returns the default dispatcher settings.
func DefaultConfig() Config {
	return Config{BatchPause: DefaultBatchPause, SendTimeout: DefaultSendTimeout}
}

// DispatchStats summarizes one Dispatch call.
type DispatchStats struct {
	Items    int // items handed to the dispatcher
	Batches  int // batches attempted
	Channels int // enabled channels

	// Delivered and Failed count channel deliveries: one batch sent to two channels
	// counts twice. Rejected deliveries were refused by an open circuit breaker.
	Delivered int
	Failed    int
	Rejected  int

	// Undelivered counts batches abandoned because the context ended.
	Undelivered int
}

// ChannelHealthStatus represents the health status of a notification channel.
type ChannelHealthStatus struct {
	Name               string
	Enabled            bool
	CircuitBreakerOpen bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSleeper replaces the real-time sleeper used between batches.
func WithSleeper(s retry.Sleeper) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sleeper = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithBreakerConfig overrides the circuit breaker configuration for each channel.
func WithBreakerConfig(fn func(channel string) circuitbreaker.Config) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.breakerConfig = fn
		}
	}
}

// Dispatcher delivers new items to every enabled channel in batches.
type Dispatcher struct {
	channels      []Channel
	breakers      map[string]*circuitbreaker.CircuitBreaker
	breakerConfig func(channel string) circuitbreaker.Config
	cfg           Config
	sleeper       retry.Sleeper
	logger        *slog.Logger
}

// NewDispatcher creates a Dispatcher. Each channel gets its own circuit breaker,
// which lives as long as the Dispatcher.
func NewDispatcher(channels []Channel, cfg Config, opts ...Option) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.BatchPause < 0 {
		cfg.BatchPause = 0
	}

	d := &Dispatcher{
		channels:      channels,
		breakers:      make(map[string]*circuitbreaker.CircuitBreaker, len(channels)),
		breakerConfig: circuitbreaker.WebhookConfig,
		cfg:           cfg,
		sleeper:       retry.ContextSleeper{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, ch := range channels {
		name := ch.Name()
		bc := d.breakerConfig(name)
		bc.OnStateChange = func(_ string, _, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				RecordCircuitBreakerOpen(name)
			}
		}
		d.breakers[name] = circuitbreaker.New(bc)
	}
	return d
}

// Dispatch sanitizes items and delivers them in batches of at most BatchSize to
// every enabled channel, pausing between batches. Failures are logged and counted
// in the returned stats; Dispatch never fails as a whole.
func (d *Dispatcher) Dispatch(ctx context.Context, items []entity.NewItem) DispatchStats {
	stats := DispatchStats{Items: len(items)}

	enabled := d.enabledChannels()
	stats.Channels = len(enabled)
	SetChannelsEnabled(len(enabled))

	if len(items) == 0 {
		return stats
	}

	requestID := uuid.New().String()
	logger := d.logger.With(slog.String("request_id", requestID))

	if len(enabled) == 0 {
		logger.Info("no notification channels enabled, skipping delivery",
			slog.Int("items", len(items)))
		return stats
	}

	ctx = notifier.WithRequestID(ctx, requestID)
	batches := Batches(SanitizeItems(items), BatchSize)

	logger.Info("dispatching new items",
		slog.Int("items", len(items)),
		slog.Int("batches", len(batches)),
		slog.Int("channels", len(enabled)))

	for i, batch := range batches {
		if i > 0 && d.cfg.BatchPause > 0 {
			if err := d.sleeper.Sleep(ctx, d.cfg.BatchPause); err != nil {
				stats.Undelivered = len(batches) - i
				logger.Warn("dispatch interrupted, remaining batches not delivered",
					slog.Int("undelivered_batches", stats.Undelivered),
					slog.Any("error", err))
				break
			}
		}
		stats.Batches++

		for _, ch := range enabled {
			err := d.send(ctx, ch, batch)
			switch {
			case err == nil:
				stats.Delivered++
			case errors.Is(err, ErrCircuitBreakerOpen):
				stats.Rejected++
				logger.Warn("batch rejected by circuit breaker",
					slog.String("channel", ch.Name()),
					slog.Int("batch", i+1))
			default:
				stats.Failed++
				logger.Warn("batch delivery failed",
					slog.String("channel", ch.Name()),
					slog.Int("batch", i+1),
					slog.Int("items", len(batch)),
					slog.Any("error", err))
			}
		}
	}

	logger.Info("dispatch completed",
		slog.Int("batches", stats.Batches),
		slog.Int("delivered", stats.Delivered),
		slog.Int("failed", stats.Failed),
		slog.Int("rejected", stats.Rejected))

	return stats
}

// send delivers one batch to one channel through its circuit breaker.
func (d *Dispatcher) send(ctx context.Context, ch Channel, batch []entity.NewItem) (err error) {
	name := ch.Name()
	breaker := d.breakers[name]

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in notification channel",
				slog.String("channel", name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("channel %s panicked: %v", name, r)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	start := time.Now()
	err = breaker.Run(func() error {
		return ch.SendBatch(sendCtx, batch)
	})
	duration := time.Since(start)

	switch {
	case err == nil:
		RecordBatchSuccess(name, len(batch), duration)
		return nil
	case circuitbreaker.IsRejection(err):
		RecordBatchRejected(name)
		return ErrCircuitBreakerOpen
	default:
		RecordBatchFailure(name, duration)
		return err
	}
}

func (d *Dispatcher) enabledChannels() []Channel {
	enabled := make([]Channel, 0, len(d.channels))
	for _, ch := range d.channels {
		if ch.IsEnabled() {
			enabled = append(enabled, ch)
		}
	}
	return enabled
}

// ChannelHealth returns the configuration and circuit breaker state of every channel.
func (d *Dispatcher) ChannelHealth() []ChannelHealthStatus {
	statuses := make([]ChannelHealthStatus, 0, len(d.channels))
	for _, ch := range d.channels {
		statuses = append(statuses, ChannelHealthStatus{
			Name:               ch.Name(),
			Enabled:            ch.IsEnabled(),
			CircuitBreakerOpen: d.breakers[ch.Name()].IsOpen(),
		})
	}
	return statuses
}

// SanitizeItems returns copies of items with title, source name and summary passed
// through text.Sanitize. An empty summary stays empty. Identifiers are left intact.
func SanitizeItems(items []entity.NewItem) []entity.NewItem {
	out := make([]entity.NewItem, len(items))
	for i, item := range items {
		item.Title = text.Sanitize(item.Title)
		item.SourceName = text.Sanitize(item.SourceName)
		if item.Summary != "" {
			item.Summary = text.Sanitize(item.Summary)
		}
		out[i] = item
	}
	return out
}

// Batches splits items into consecutive chunks of at most size, preserving order.
func Batches(items []entity.NewItem, size int) [][]entity.NewItem {
	if size <= 0 {
		size = BatchSize
	}
	batches := make([][]entity.NewItem, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}
