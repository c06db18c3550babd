package jobs

import "strings"

// ValidatePayload checks the fields a handler cannot work without.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	switch t {
	case JobOrderConfirmation:
		var p OrderConfirmationPayload
		switch v := payload.(type) {
		case OrderConfirmationPayload:
			p = v
		case *OrderConfirmationPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if strings.TrimSpace(p.OrderID) == "" || strings.TrimSpace(p.UserID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
