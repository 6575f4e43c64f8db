package notify

import "errors"

var (
	// ErrChannelDisabled is returned by SendBatch on a channel with no webhook.
	ErrChannelDisabled = errors.New("notification channel not configured")

	// ErrCircuitBreakerOpen means the batch was refused without a delivery attempt.
	ErrCircuitBreakerOpen = errors.New("channel circuit open, batch not sent")
)
