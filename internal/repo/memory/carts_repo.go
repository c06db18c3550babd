package memory

import (
	"context"
	"sync"

	"github.com/vmarkevych/storefront/internal/domain/cart"
)

// CartsRepo keeps the active cart per principal plus an append-only order
// ledger. Values are copied on the way in and out so callers never share
// slices with the store.
type CartsRepo struct {
	mu     sync.RWMutex
	active map[string]cart.Cart // principalID -> cart
	orders []cart.Order
}

func NewCartsRepo() *CartsRepo {
	return &CartsRepo{
		active: make(map[string]cart.Cart),
	}
}

func (r *CartsRepo) FindActiveByPrincipal(_ context.Context, principalID string) (cart.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.active[principalID]
	if !ok {
		return cart.Cart{}, cart.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (r *CartsRepo) Create(_ context.Context, c cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[c.PrincipalID]; exists {
		return cart.ErrActiveCartExists
	}
	r.active[c.PrincipalID] = c.Clone()
	return nil
}

func (r *CartsRepo) Update(_ context.Context, c cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.active[c.PrincipalID]
	if !ok || current.ID != c.ID {
		return cart.ErrCartNotFound
	}
	r.active[c.PrincipalID] = c.Clone()
	return nil
}

// AppendOrder detaches the cart from the active slot and appends the order in
// one critical section.
func (r *CartsRepo) AppendOrder(_ context.Context, o cart.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.active[o.PrincipalID]
	if !ok || current.ID != o.ID {
		return cart.ErrCartNotFound
	}

	delete(r.active, o.PrincipalID)
	r.orders = append(r.orders, o.Clone())
	return nil
}

func (r *CartsRepo) ListOrders(_ context.Context, principalID string) ([]cart.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]cart.Order, 0)
	for _, o := range r.orders {
		if o.PrincipalID == principalID {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

// LedgerLen is the total number of orders across principals.
func (r *CartsRepo) LedgerLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}
