package jobs

import "time"

// OrderConfirmationPayload carries what the notifier needs; the order itself
// stays in the ledger.
type OrderConfirmationPayload struct {
	OrderID      string    `json:"orderId"`
	UserID       string    `json:"userId"`
	TotalPrice   float64   `json:"totalPrice"`
	ItemCount    int       `json:"itemCount"`
	CheckedOutAt time.Time `json:"checkedOutAt"`
	RequestID    string    `json:"requestId,omitempty"`
}
