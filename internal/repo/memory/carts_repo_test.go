package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmarkevych/storefront/internal/domain/cart"
)

func TestCartsRepo_SingleActiveCart(t *testing.T) {
	r := NewCartsRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	first := cart.New("u1", cart.LineItem{ProductID: "p1", Price: 1}, now)
	require.NoError(t, r.Create(ctx, first))

	second := cart.New("u1", cart.LineItem{ProductID: "p2", Price: 2}, now)
	require.ErrorIs(t, r.Create(ctx, second), cart.ErrActiveCartExists)
	require.ErrorIs(t, r.Update(ctx, second), cart.ErrCartNotFound)
}

func TestCartsRepo_AppendOrderDetachesCart(t *testing.T) {
	r := NewCartsRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	c := cart.New("u1", cart.LineItem{ProductID: "p1", Price: 4.25}, now)
	require.NoError(t, r.Create(ctx, c))

	order := c.Freeze(now)
	require.NoError(t, r.AppendOrder(ctx, order))

	_, err := r.FindActiveByPrincipal(ctx, "u1")
	require.ErrorIs(t, err, cart.ErrCartNotFound)
	assert.Equal(t, 1, r.LedgerLen())

	// replaying the same order finds no cart to detach
	require.ErrorIs(t, r.AppendOrder(ctx, order), cart.ErrCartNotFound)
	assert.Equal(t, 1, r.LedgerLen())

	orders, err := r.ListOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 4.25, orders[0].TotalPrice)

	others, err := r.ListOrders(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestCartsRepo_ReturnsCopies(t *testing.T) {
	r := NewCartsRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	c := cart.New("u1", cart.LineItem{ProductID: "p1", Price: 1}, now)
	require.NoError(t, r.Create(ctx, c))

	got, err := r.FindActiveByPrincipal(ctx, "u1")
	require.NoError(t, err)
	got.Items[0].Price = 100

	again, err := r.FindActiveByPrincipal(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Items[0].Price)
}
