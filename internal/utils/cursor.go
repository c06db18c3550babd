package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// ProductCursor marks the last product of a page in (createdAt, id) order.
type ProductCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeProductCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(ProductCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeProductCursor(cursor string) (ProductCursor, error) {
	if cursor == "" {
		return ProductCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return ProductCursor{}, err
	}

	var c ProductCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return ProductCursor{}, err
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return ProductCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}
