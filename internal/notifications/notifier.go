package notifications

import (
	"context"
	"time"
)

type OrderConfirmationInput struct {
	OrderID      string
	UserID       string
	TotalPrice   float64
	ItemCount    int
	CheckedOutAt time.Time
	RequestID    string
}

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, input OrderConfirmationInput) error
}
