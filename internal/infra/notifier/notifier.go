// Package notifier delivers batches of new items to chat webhooks.
//
// Discord and Slack are supported. Both share one delivery path: a token-bucket
// rate limiter, a single POST per attempt, error classification into
// RateLimitError, ClientError and ServerError, and a short bounded retry loop.
// Callers hand over items that are already sanitized; notifiers only truncate
// to each service's field limits.
package notifier

import (
	"context"

	"feedwatch/internal/domain/entity"
)

// Notifier sends one batch of new items as a single message.
type Notifier interface {
	// NotifyBatch delivers items in one webhook request. An empty batch is a no-op.
	// It returns a non-nil error when the message could not be delivered after all
	// retry attempts.
	NotifyBatch(ctx context.Context, items []entity.NewItem) error
}
