package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrProviderDown = errors.New("provider down (simulated)")

// LogNotifier "delivers" by writing a structured log line.
type LogNotifier struct {
	log   *slog.Logger
	delay time.Duration
	fail  bool
}

type LogNotifierOption func(*LogNotifier)

// WithDelay simulates a slow provider.
func WithDelay(d time.Duration) LogNotifierOption {
	return func(n *LogNotifier) { n.delay = d }
}

// WithFailure simulates a provider outage.
func WithFailure(fail bool) LogNotifierOption {
	return func(n *LogNotifier) { n.fail = fail }
}

func NewLogNotifier(log *slog.Logger, opts ...LogNotifierOption) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	n := &LogNotifier{log: log}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *LogNotifier) SendOrderConfirmation(ctx context.Context, in OrderConfirmationInput) error {
	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if n.fail {
		return ErrProviderDown
	}

	n.log.InfoContext(ctx, "notification.order_confirmation",
		"order_id", in.OrderID,
		"user_id", in.UserID,
		"total_price", in.TotalPrice,
		"items", in.ItemCount,
		"request_id", in.RequestID,
	)
	return nil
}
