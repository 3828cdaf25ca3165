// Package notify delivers detected arbitrage opportunities to an alert sink.
// Telegram is the primary channel; console output serves development and the
// one-shot scanner. Delivery is best-effort per opportunity so one failed
// message never drops the rest of a batch.
package notify

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/models"
)

// Notifier delivers a batch of opportunities to an alert channel. It returns
// the number of opportunities actually delivered; a non-nil error means at
// least one delivery failed.
type Notifier interface {
	Notify(ctx context.Context, opportunities []models.ArbitrageOpportunity) (int, error)
}
