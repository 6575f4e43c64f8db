// Package notify delivers the new items of a poll run to every enabled chat channel.
//
// The Dispatcher sanitizes item text, splits the list into batches of at most
// BatchSize, and hands each batch to each channel with a short pause between
// batches. Delivery failures are logged and counted but never returned: items are
// already recorded as seen by the time they reach the dispatcher.
package notify

import (
	"context"

	"feedwatch/internal/domain/entity"
)

// Channel is a notification delivery target (Discord, Slack).
//
// Implementations handle their own rate limiting and retries and must be safe for
// concurrent use.
type Channel interface {
	// Name returns the channel identifier used in logs and metric labels.
	Name() string

	// IsEnabled reports whether the channel is configured. Disabled channels are skipped.
	IsEnabled() bool

	// SendBatch delivers one batch as a single message.
	//
	// Returns:
	//   - ErrChannelDisabled: if called on a disabled channel
	//   - other errors: delivery failed after the channel's own retries
	SendBatch(ctx context.Context, items []entity.NewItem) error
}
