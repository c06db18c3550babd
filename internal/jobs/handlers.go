package jobs

import (
	"context"

	"github.com/vmarkevych/storefront/internal/notifications"
)

// Handler executes one job. Errors wrapped with Permanent are not retried.
type Handler func(ctx context.Context, j Job) error

func OrderConfirmationHandler(n notifications.Notifier) Handler {
	return func(ctx context.Context, j Job) error {
		decoded, err := DecodePayload(j)
		if err != nil {
			return Permanent(err)
		}
		if err := ValidatePayload(j.Type, decoded); err != nil {
			return Permanent(err)
		}

		p := decoded.(OrderConfirmationPayload)

		return n.SendOrderConfirmation(ctx, notifications.OrderConfirmationInput{
			OrderID:      p.OrderID,
			UserID:       p.UserID,
			TotalPrice:   p.TotalPrice,
			ItemCount:    p.ItemCount,
			CheckedOutAt: p.CheckedOutAt,
			RequestID:    p.RequestID,
		})
	}
}
