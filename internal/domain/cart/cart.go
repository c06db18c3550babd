package cart

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/vmarkevych/storefront/internal/apperr"
	"github.com/vmarkevych/storefront/internal/domain/product"
)

// LineItem is a snapshot of a product taken when it was added. Later catalog
// edits never reach it.
type LineItem struct {
	ProductID   string    `json:"productId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	AddedAt     time.Time `json:"addedAt"`
}

// Cart is the mutable basket of one principal. Quantity is modeled by
// repeating a line item.
type Cart struct {
	ID          string     `json:"id"`
	PrincipalID string     `json:"userId"`
	Items       []LineItem `json:"products"`
	TotalPrice  *float64   `json:"totalPrice,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Order is a checked-out cart. Never mutated after it is appended to the ledger.
type Order struct {
	ID           string     `json:"id"`
	PrincipalID  string     `json:"userId"`
	Items        []LineItem `json:"products"`
	TotalPrice   float64    `json:"totalPrice"`
	CreatedAt    time.Time  `json:"createdAt"`
	CheckedOutAt time.Time  `json:"checkedOutAt"`
}

var (
	ErrProductNotFound  = product.ErrNotFound
	ErrCartNotFound     = apperr.New(apperr.KindNotFound, "cart_not_found", "cart not found")
	ErrItemNotInCart    = apperr.New(apperr.KindNotFound, "item_not_in_cart", "product is not in the cart")
	// another writer created the principal's cart first
	ErrActiveCartExists = apperr.New(apperr.KindConflict, "cart_exists", "an active cart already exists")
)

func Snapshot(p product.Product, at time.Time) LineItem {
	return LineItem{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		AddedAt:     at,
	}
}

func New(principalID string, first LineItem, now time.Time) Cart {
	return Cart{
		ID:          uuid.NewString(),
		PrincipalID: principalID,
		Items:       []LineItem{first},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Add appends one line item, keeping insertion order.
func (c *Cart) Add(item LineItem, now time.Time) {
	c.Items = append(c.Items, item)
	c.UpdatedAt = now
}

// Remove drops the first line item for productID. It reports false when the
// product is not in the cart.
func (c *Cart) Remove(productID string, now time.Time) bool {
	for i, item := range c.Items {
		if item.ProductID != productID {
			continue
		}

		items := make([]LineItem, 0, len(c.Items)-1)
		items = append(items, c.Items[:i]...)
		items = append(items, c.Items[i+1:]...)
		c.Items = items
		c.UpdatedAt = now
		return true
	}
	return false
}

// Total sums line item prices, rounded to cents.
func (c Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price
	}
	return math.Round(total*100) / 100
}

// Freeze prices the cart and turns it into an order.
func (c Cart) Freeze(now time.Time) Order {
	return Order{
		ID:           c.ID,
		PrincipalID:  c.PrincipalID,
		Items:        append([]LineItem{}, c.Items...),
		TotalPrice:   c.Total(),
		CreatedAt:    c.CreatedAt,
		CheckedOutAt: now,
	}
}

func (c Cart) Clone() Cart {
	out := c
	out.Items = append([]LineItem{}, c.Items...)
	if c.TotalPrice != nil {
		v := *c.TotalPrice
		out.TotalPrice = &v
	}
	return out
}

func (o Order) Clone() Order {
	out := o
	out.Items = append([]LineItem{}, o.Items...)
	return out
}
