package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/vmarkevych/storefront/internal/domain/cart"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, j Job) error
}

// Publisher turns domain events into queued jobs.
type Publisher struct {
	queue       Enqueuer
	maxAttempts int
}

func NewPublisher(queue Enqueuer, maxAttempts int) *Publisher {
	return &Publisher{queue: queue, maxAttempts: maxAttempts}
}

func (p *Publisher) PublishOrderConfirmation(ctx context.Context, order cart.Order, requestID string) error {
	payload := OrderConfirmationPayload{
		OrderID:      order.ID,
		UserID:       order.PrincipalID,
		TotalPrice:   order.TotalPrice,
		ItemCount:    len(order.Items),
		CheckedOutAt: order.CheckedOutAt,
		RequestID:    requestID,
	}
	if err := ValidatePayload(JobOrderConfirmation, payload); err != nil {
		return err
	}

	b, err := EncodePayload(JobOrderConfirmation, payload)
	if err != nil {
		return err
	}

	j, err := NewJob(JobOrderConfirmation, b, time.Time{}, p.maxAttempts)
	if err != nil {
		return err
	}

	if err := p.queue.Enqueue(ctx, j); err != nil {
		return fmt.Errorf("enqueue %s: %w", j.Type, err)
	}
	return nil
}
