package jobs

import (
	"encoding/json"
	"fmt"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobOrderConfirmation:
		switch payload.(type) {
		case OrderConfirmationPayload, *OrderConfirmationPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}
	return b, nil
}

// DecodePayload unmarshals j.Payload into the typed payload for j.Type.
func DecodePayload(j Job) (any, error) {
	if !j.Type.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch j.Type {
	case JobOrderConfirmation:
		var p OrderConfirmationPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}
