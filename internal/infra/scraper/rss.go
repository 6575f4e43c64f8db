// Package scraper retrieves RSS and Atom feeds over HTTP.
//
// A FeedClient performs exactly one attempt per call and reports the raw outcome
// (status code, Retry-After header, parsed entries). Retry policy is the caller's
// concern; see the retry package.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/resilience/retry"
	"feedwatch/internal/utils/text"

	"github.com/mmcdole/gofeed"
)

const (
	// DefaultUserAgent identifies the poller to feed servers.
	DefaultUserAgent = "feedwatch/1.0 (+https://github.com/feedwatch)"

	// DefaultMaxBodyBytes caps the size of a feed body read into memory.
	DefaultMaxBodyBytes int64 = 10 << 20

	acceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"

	summaryMaxRunes = 1000
)

// ErrParse wraps failures to decode a 200 response body as a feed.
var ErrParse = errors.New("parse feed")

// Config holds the per-attempt request settings.
type Config struct {
	// UserAgent is sent on every request.
	UserAgent string

	// Timeout bounds one attempt, including reading the body.
	Timeout time.Duration

	// MaxBodyBytes caps the body size; larger bodies are truncated and fail to parse.
	MaxBodyBytes int64
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		UserAgent:    DefaultUserAgent,
		Timeout:      30 * time.Second,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Response is the raw outcome of one attempt.
type Response struct {
	// StatusCode is 0 when no HTTP response was received.
	StatusCode int

	// RetryAfter is the raw Retry-After header value, if any.
	RetryAfter string

	// Items holds the parsed entries of a successful attempt, in feed order.
	Items []entity.FeedItem
}

// FeedClient fetches and parses a feed in a single attempt.
type FeedClient struct {
	client *http.Client
	cfg    Config
}

// NewFeedClient creates a FeedClient. A nil client uses http.DefaultClient; zero
// Config fields take their defaults.
func NewFeedClient(client *http.Client, cfg Config) *FeedClient {
	if client == nil {
		client = http.DefaultClient
	}
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	return &FeedClient{client: client, cfg: cfg}
}

// FetchOnce performs one GET of feedURL.
//
// The error is nil only for an HTTP 200 whose body parsed. A non-200 status yields a
// *retry.HTTPError alongside the populated StatusCode; a parse failure yields an error
// wrapping ErrParse with StatusCode 200; a transport failure leaves StatusCode at 0.
func (c *FeedClient) FetchOnce(ctx context.Context, feedURL string) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	out := Response{
		StatusCode: resp.StatusCode,
		RetryAfter: resp.Header.Get("Retry-After"),
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return out, &retry.HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		// The status line arrived but the body did not; treat it as a transport failure.
		return Response{}, fmt.Errorf("read feed body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrParse, err)
	}

	out.Items = convertItems(feed.Items)
	return out, nil
}

// convertItems maps parsed entries to FeedItems. The link is the identifier; entries
// without a link fall back to their GUID and are dropped when both are empty.
func convertItems(items []*gofeed.Item) []entity.FeedItem {
	out := make([]entity.FeedItem, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		id := strings.TrimSpace(it.Link)
		if id == "" {
			id = strings.TrimSpace(it.GUID)
		}
		if id == "" {
			continue
		}

		description := it.Description
		if description == "" {
			description = it.Content
		}

		var published *time.Time
		if it.PublishedParsed != nil {
			t := *it.PublishedParsed
			published = &t
		} else if it.UpdatedParsed != nil {
			t := *it.UpdatedParsed
			published = &t
		}

		out = append(out, entity.FeedItem{
			ID:        id,
			Title:     strings.TrimSpace(it.Title),
			Summary:   text.Summary(description, summaryMaxRunes),
			Published: published,
		})
	}
	return out
}
