package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/utils/text"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// Enabled indicates whether Discord notifications are enabled
	Enabled bool

	// WebhookURL is the Discord webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Discord API calls
	Timeout time.Duration
}

// DiscordNotifier sends batches of new items to Discord via webhook.
type DiscordNotifier struct {
	*webhook
}

// NewDiscordNotifier creates a DiscordNotifier.
//
// The default rate limiter allows 0.5 requests/second with a burst of 3
// (Discord webhook limit: 30 requests per minute).
func NewDiscordNotifier(config DiscordConfig, opts ...Option) *DiscordNotifier {
	return &DiscordNotifier{
		webhook: newWebhook("Discord", config.WebhookURL, config.Timeout, NewRateLimiter(0.5, 3), opts),
	}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Content string         `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	URL         string             `json:"url,omitempty"`
	Color       int                `json:"color"`
	Footer      DiscordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp,omitempty"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	// Discord limits
	MaxDiscordEmbeds     = 10
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	maxFooterLength      = 2048

	// Discord blue color (#5865F2)
	discordBlueColor = 5793266
)

// buildBatchPayload creates one message with a headline and one embed per item.
//
// Each embed carries:
//   - Title: item title (truncated to 256 runes)
//   - URL: item link, when it is an http(s) URL
//   - Description: "Source: <name>" followed by the summary, if any
//   - Footer: "Published: <time>" or "Published: N/A"
//   - Timestamp: publication time in RFC3339 format, when known
func buildBatchPayload(items []entity.NewItem) DiscordWebhookPayload {
	embeds := make([]DiscordEmbed, 0, len(items))
	for _, item := range items {
		description := "Source: " + item.SourceName
		if item.Summary != "" {
			description += "\n\n" + item.Summary
		}

		embed := DiscordEmbed{
			Title:       text.Truncate(item.Title, maxTitleLength, truncationSuffix),
			Description: text.Truncate(description, maxDescriptionLength, truncationSuffix),
			Color:       discordBlueColor,
			Footer: DiscordEmbedFooter{
				Text: text.Truncate("Published: "+formatPublished(item.Published), maxFooterLength, truncationSuffix),
			},
		}
		if isWebURL(item.ID) {
			embed.URL = item.ID
		}
		if item.Published != nil && !item.Published.IsZero() {
			embed.Timestamp = item.Published.UTC().Format(time.RFC3339)
		}
		embeds = append(embeds, embed)
	}

	return DiscordWebhookPayload{
		Content: "**" + headline(len(items)) + "**",
		Embeds:  embeds,
	}
}

// NotifyBatch sends items as one Discord message. At most MaxDiscordEmbeds items fit.
func (d *DiscordNotifier) NotifyBatch(ctx context.Context, items []entity.NewItem) error {
	if len(items) == 0 {
		return nil
	}
	if len(items) > MaxDiscordEmbeds {
		return fmt.Errorf("%w: %d items, discord allows %d embeds", ErrBatchTooLarge, len(items), MaxDiscordEmbeds)
	}
	return d.deliver(ctx, buildBatchPayload(items), len(items))
}

func isWebURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
