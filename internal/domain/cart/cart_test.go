package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, price float64) LineItem {
	return LineItem{ProductID: id, Name: id, Price: price}
}

func productIDs(items []LineItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

func TestRemove_DropsFirstMatchOnly(t *testing.T) {
	now := time.Now().UTC()
	c := New("u1", item("x", 1), now)
	c.Add(item("x", 1), now)
	c.Add(item("y", 2), now)

	require.True(t, c.Remove("x", now))
	assert.Equal(t, []string{"x", "y"}, productIDs(c.Items))

	assert.False(t, c.Remove("z", now))
	assert.Equal(t, []string{"x", "y"}, productIDs(c.Items))
}

func TestTotal_RoundsToCents(t *testing.T) {
	now := time.Now().UTC()
	c := New("u1", item("a", 0.1), now)
	c.Add(item("b", 0.2), now)

	assert.Equal(t, 0.3, c.Total())
}

func TestFreeze_CopiesItems(t *testing.T) {
	now := time.Now().UTC()
	c := New("u1", item("a", 10), now)
	c.Add(item("b", 5.5), now)

	order := c.Freeze(now)
	c.Items[0].Price = 999

	assert.Equal(t, c.ID, order.ID)
	assert.Equal(t, 15.5, order.TotalPrice)
	assert.Equal(t, 10.0, order.Items[0].Price)
}
