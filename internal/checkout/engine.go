// Package checkout owns per-principal cart state and its transition into an
// immutable order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmarkevych/storefront/internal/domain/cart"
	"github.com/vmarkevych/storefront/internal/domain/product"
)

// Catalog resolves product ids. A missing product is product.ErrNotFound.
type Catalog interface {
	GetByID(ctx context.Context, id string) (product.Product, error)
}

// Store persists active carts and the order ledger. AppendOrder must detach
// the principal's active cart and record the order atomically.
type Store interface {
	FindActiveByPrincipal(ctx context.Context, principalID string) (cart.Cart, error)
	Create(ctx context.Context, c cart.Cart) error
	Update(ctx context.Context, c cart.Cart) error
	AppendOrder(ctx context.Context, o cart.Order) error
	ListOrders(ctx context.Context, principalID string) ([]cart.Order, error)
}

type Engine struct {
	catalog Catalog
	store   Store
	locks   *principalLocks
	now     func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(catalog Catalog, store Store, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		store:   store,
		locks:   newPrincipalLocks(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddItem appends a snapshot of the product, creating the cart on first use.
func (e *Engine) AddItem(ctx context.Context, principalID, productID string) (cart.Cart, error) {
	p, err := e.catalog.GetByID(ctx, productID)
	if err != nil {
		return cart.Cart{}, err
	}

	unlock := e.locks.lock(principalID)
	defer unlock()

	now := e.now().UTC()
	item := cart.Snapshot(p, now)

	c, err := e.store.FindActiveByPrincipal(ctx, principalID)
	if errors.Is(err, cart.ErrCartNotFound) {
		c = cart.New(principalID, item, now)
		if err := e.store.Create(ctx, c); err != nil {
			return cart.Cart{}, fmt.Errorf("create cart: %w", err)
		}
		return c, nil
	}
	if err != nil {
		return cart.Cart{}, err
	}

	c.Add(item, now)
	if err := e.store.Update(ctx, c); err != nil {
		return cart.Cart{}, fmt.Errorf("update cart: %w", err)
	}
	return c, nil
}

// RemoveItem drops exactly one line item for the product.
func (e *Engine) RemoveItem(ctx context.Context, principalID, productID string) (cart.Cart, error) {
	if _, err := e.catalog.GetByID(ctx, productID); err != nil {
		return cart.Cart{}, err
	}

	unlock := e.locks.lock(principalID)
	defer unlock()

	c, err := e.store.FindActiveByPrincipal(ctx, principalID)
	if err != nil {
		return cart.Cart{}, err
	}

	if !c.Remove(productID, e.now().UTC()) {
		return cart.Cart{}, cart.ErrItemNotInCart
	}

	if err := e.store.Update(ctx, c); err != nil {
		return cart.Cart{}, fmt.Errorf("update cart: %w", err)
	}
	return c, nil
}

// Checkout prices the active cart and moves it to the order ledger. The
// principal has no active cart afterwards.
func (e *Engine) Checkout(ctx context.Context, principalID string) (cart.Order, error) {
	unlock := e.locks.lock(principalID)
	defer unlock()

	c, err := e.store.FindActiveByPrincipal(ctx, principalID)
	if err != nil {
		return cart.Order{}, err
	}

	order := c.Freeze(e.now().UTC())
	if err := e.store.AppendOrder(ctx, order); err != nil {
		return cart.Order{}, fmt.Errorf("append order: %w", err)
	}
	return order, nil
}

func (e *Engine) Cart(ctx context.Context, principalID string) (cart.Cart, error) {
	return e.store.FindActiveByPrincipal(ctx, principalID)
}

func (e *Engine) Orders(ctx context.Context, principalID string) ([]cart.Order, error) {
	return e.store.ListOrders(ctx, principalID)
}
