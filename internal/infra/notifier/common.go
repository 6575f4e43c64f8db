package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"feedwatch/internal/resilience/retry"
	"feedwatch/internal/utils/text"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "request_id"

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 2
	defaultBaseDelay   = 5 * time.Second
	defaultRetryAfter  = 5 * time.Second
	maxErrorBodyRunes  = 200
	truncationSuffix   = "..."
	publishedLayout    = "2006-01-02 15:04 UTC"
	notAvailable       = "N/A"
)

// WithRequestID returns a context carrying id. Notifiers log it with every attempt.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id carried by ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RateLimitError represents a 429 rate limit error from a webhook service.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string // Optional custom message
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx client error from a webhook service.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx server error from a webhook service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// ErrBatchTooLarge is returned when a batch exceeds what one message can carry.
var ErrBatchTooLarge = errors.New("batch exceeds message capacity")

// is429Error checks if the error is a rate limit error and extracts retry_after.
func is429Error(err error) (*RateLimitError, bool) {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr, true
	}
	return nil, false
}

// isRetryableError checks if the error is worth retrying (5xx server errors, network errors).
// Client errors (4xx) are not retryable except for rate limits (429).
func isRetryableError(err error) bool {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return false // Handled by is429Error
	}

	// Context cancellation ends delivery for good.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}

// Option configures a webhook notifier.
type Option func(*webhook)

// WithHTTPClient replaces the HTTP client. The configured timeout is not applied to it.
func WithHTTPClient(c *http.Client) Option {
	return func(w *webhook) {
		if c != nil {
			w.httpClient = c
		}
	}
}

// WithLimiter replaces the per-service default rate limiter.
func WithLimiter(l Limiter) Option {
	return func(w *webhook) {
		if l != nil {
			w.limiter = l
		}
	}
}

// WithSleeper replaces the real-time sleeper used between attempts.
func WithSleeper(s retry.Sleeper) Option {
	return func(w *webhook) {
		if s != nil {
			w.sleeper = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *webhook) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRetry overrides the attempt count and base delay of the delivery loop.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(w *webhook) {
		if maxAttempts > 0 {
			w.maxAttempts = maxAttempts
		}
		if baseDelay >= 0 {
			w.baseDelay = baseDelay
		}
	}
}

// webhook is the delivery path shared by the Discord and Slack notifiers.
type webhook struct {
	service     string
	url         string
	httpClient  *http.Client
	limiter     Limiter
	sleeper     retry.Sleeper
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
}

func newWebhook(service, url string, timeout time.Duration, limiter Limiter, opts []Option) *webhook {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	w := &webhook{
		service:     service,
		url:         url,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     limiter,
		sleeper:     retry.ContextSleeper{},
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// post sends payload once and maps the response to the webhook error taxonomy.
func (w *webhook) post(ctx context.Context, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    w.service + " rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, body),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API client error (HTTP %d): %s", w.service, resp.StatusCode, errorBody(body)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API server error (HTTP %d): %s", w.service, resp.StatusCode, errorBody(body)),
		}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, errorBody(body))
}

// deliver applies rate limiting and retries post until it succeeds, fails
// permanently, or runs out of attempts.
//
// Retry strategy:
//   - 429: wait for retry_after, then retry
//   - 5xx and network errors: wait base delay × attempt, then retry
//   - other 4xx: fail immediately
//
// No wait follows the last attempt.
func (w *webhook) deliver(ctx context.Context, payload any, items int) error {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = WithRequestID(ctx, requestID)
	}
	logger := w.logger.With(
		slog.String("request_id", requestID),
		slog.String("service", w.service),
		slog.Int("items", items))

	if err := w.limiter.Allow(ctx); err != nil {
		logger.Error("rate limiter error", slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.post(ctx, payload)
		if err == nil {
			logger.Info("webhook notification sent", slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		var delay time.Duration
		if rateLimitErr, ok := is429Error(err); ok {
			delay = rateLimitErr.RetryAfter
			logger.Warn("webhook rate limit hit, backing off",
				slog.Duration("retry_after", delay),
				slog.Int("attempt", attempt))
		} else if !isRetryableError(err) {
			logger.Error("webhook notification failed with non-retryable error",
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		} else {
			delay = w.baseDelay * time.Duration(attempt)
			logger.Warn("webhook request failed, retrying",
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
		}

		if attempt == w.maxAttempts {
			break
		}
		if err := w.sleeper.Sleep(ctx, delay); err != nil {
			return fmt.Errorf("context canceled during retry backoff: %w", err)
		}
	}

	logger.Error("webhook notification failed after all retries",
		slog.Any("error", lastErr),
		slog.Int("max_attempts", w.maxAttempts))

	return fmt.Errorf("%s notification failed after %d attempts: %w", w.service, w.maxAttempts, lastErr)
}

// extractRetryAfter reads retry_after from a JSON error body (seconds, possibly
// fractional), then the Retry-After header, then falls back to a default.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return defaultRetryAfter
}

func errorBody(body []byte) string {
	return text.Truncate(string(bytes.TrimSpace(body)), maxErrorBodyRunes, truncationSuffix)
}

func formatPublished(p *time.Time) string {
	if p == nil || p.IsZero() {
		return notAvailable
	}
	return p.UTC().Format(publishedLayout)
}

func headline(n int) string {
	return fmt.Sprintf("Found %d new items!", n)
}
