package notifier

import (
	"context"

	"feedwatch/internal/domain/entity"
)

// NoOpNotifier accepts every batch and sends nothing. Channels without a webhook
// URL hold one so they never need a nil check.
type NoOpNotifier struct{}

func NewNoOpNotifier() *NoOpNotifier { return &NoOpNotifier{} }

// NotifyBatch drops items.
func (*NoOpNotifier) NotifyBatch(context.Context, []entity.NewItem) error { return nil }
