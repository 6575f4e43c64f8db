package notify

import (
	"context"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/infra/notifier"
)

// WebhookChannel is a Channel backed by a chat webhook notifier. A channel built
// from a disabled config holds a NoOpNotifier and refuses batches.
type WebhookChannel struct {
	name     string
	notifier notifier.Notifier
	enabled  bool
}

func newWebhookChannel(name string, enabled bool, build func() notifier.Notifier) *WebhookChannel {
	c := &WebhookChannel{name: name, enabled: enabled, notifier: notifier.NewNoOpNotifier()}
	if enabled {
		c.notifier = build()
	}
	return c
}

// NewDiscordChannel returns the "discord" channel.
func NewDiscordChannel(cfg notifier.DiscordConfig, opts ...notifier.Option) *WebhookChannel {
	return newWebhookChannel("discord", cfg.Enabled, func() notifier.Notifier {
		return notifier.NewDiscordNotifier(cfg, opts...)
	})
}

// NewSlackChannel returns the "slack" channel.
func NewSlackChannel(cfg notifier.SlackConfig, opts ...notifier.Option) *WebhookChannel {
	return newWebhookChannel("slack", cfg.Enabled, func() notifier.Notifier {
		return notifier.NewSlackNotifier(cfg, opts...)
	})
}

func (c *WebhookChannel) Name() string    { return c.name }
func (c *WebhookChannel) IsEnabled() bool { return c.enabled }

// SendBatch posts items as one chat message.
func (c *WebhookChannel) SendBatch(ctx context.Context, items []entity.NewItem) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	return c.notifier.NotifyBatch(ctx, items)
}
