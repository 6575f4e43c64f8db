package notifier

import (
	"context"
	"fmt"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/utils/text"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// Enabled indicates whether Slack notifications are enabled
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration
}

// SlackNotifier sends batches of new items to Slack via Incoming Webhook.
type SlackNotifier struct {
	*webhook
}

// NewSlackNotifier creates a SlackNotifier.
//
// The default rate limiter allows 1 request/second with a burst of 1
// (Slack webhook limit: 1 message per second).
func NewSlackNotifier(config SlackConfig, opts ...Option) *SlackNotifier {
	return &SlackNotifier{
		webhook: newWebhook("Slack", config.WebhookURL, config.Timeout, NewRateLimiter(1.0, 1), opts),
	}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`               // "section", "context", "divider"
	Text     *SlackTextObject  `json:"text,omitempty"`     // Text content (for section)
	Elements []SlackTextObject `json:"elements,omitempty"` // Elements (for context)
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"` // Actual text content
}

const (
	// Slack Block Kit limits
	maxSectionTextLength = 3000
	maxContextTextLength = 2000
	maxSlackBlocks       = 50
)

// buildBlockKitPayload creates one Slack message for a batch: a headline section,
// then a section (linked title and summary) and a context block (source and
// publication time) per item, separated by dividers.
func buildBlockKitPayload(items []entity.NewItem) SlackWebhookPayload {
	blocks := []SlackBlock{{
		Type: "section",
		Text: &SlackTextObject{Type: "mrkdwn", Text: "*" + headline(len(items)) + "*"},
	}}

	for _, item := range items {
		title := "*" + item.Title + "*"
		if isWebURL(item.ID) {
			title = fmt.Sprintf("*<%s|%s>*", item.ID, item.Title)
		}
		sectionText := title
		if item.Summary != "" {
			sectionText += "\n" + item.Summary
		}

		contextText := fmt.Sprintf("%s • Published: %s", item.SourceName, formatPublished(item.Published))

		blocks = append(blocks,
			SlackBlock{Type: "divider"},
			SlackBlock{
				Type: "section",
				Text: &SlackTextObject{
					Type: "mrkdwn",
					Text: text.Truncate(sectionText, maxSectionTextLength, truncationSuffix),
				},
			},
			SlackBlock{
				Type: "context",
				Elements: []SlackTextObject{{
					Type: "mrkdwn",
					Text: text.Truncate(contextText, maxContextTextLength, truncationSuffix),
				}},
			},
		)
	}

	return SlackWebhookPayload{
		Text:   headline(len(items)),
		Blocks: blocks,
	}
}

// NotifyBatch sends items as one Slack message.
func (s *SlackNotifier) NotifyBatch(ctx context.Context, items []entity.NewItem) error {
	if len(items) == 0 {
		return nil
	}
	if 1+3*len(items) > maxSlackBlocks {
		return fmt.Errorf("%w: %d items, slack allows %d blocks", ErrBatchTooLarge, len(items), maxSlackBlocks)
	}
	return s.deliver(ctx, buildBlockKitPayload(items), len(items))
}
