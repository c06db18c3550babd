package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmarkevych/storefront/internal/domain/product"
)

func seedProducts(r *ProductsRepo, n int) []product.Product {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]product.Product, 0, n)
	for i := 0; i < n; i++ {
		p := product.Product{
			ID:        fmt.Sprintf("p-%02d", i),
			Name:      fmt.Sprintf("product %d", i),
			Price:     float64(i + 1),
			Images:    []string{},
			Videos:    []string{},
			CreatedAt: base.Add(time.Duration(i/2) * time.Minute),
		}
		r.Put(p)
		out = append(out, p)
	}
	return out
}

func TestProductsList_CursorWalk(t *testing.T) {
	r := NewProductsRepo()
	seeded := seedProducts(r, 7)
	ctx := context.Background()

	var (
		seen   []string
		filter = product.ListFilter{Limit: 3}
	)
	for pages := 0; pages < 5; pages++ {
		page, hasMore, err := r.List(ctx, filter)
		require.NoError(t, err)
		for _, p := range page {
			seen = append(seen, p.ID)
		}
		if !hasMore {
			break
		}
		last := page[len(page)-1]
		filter.AfterCreatedAt = &last.CreatedAt
		filter.AfterID = last.ID
	}

	want := make([]string, 0, len(seeded))
	for _, p := range seeded {
		want = append(want, p.ID)
	}
	assert.Equal(t, want, seen)
}

func TestProductsList_ExactPage(t *testing.T) {
	r := NewProductsRepo()
	seedProducts(r, 3)

	page, hasMore, err := r.List(context.Background(), product.ListFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.False(t, hasMore)
}

func TestProductsMedia(t *testing.T) {
	r := NewProductsRepo()
	ctx := context.Background()
	p, err := r.Create(ctx, product.CreateProductRequest{Name: "lamp", Description: "desk lamp", Price: 12})
	require.NoError(t, err)

	_, err = r.AttachMedia(ctx, "missing", product.MediaImage, "a.jpg")
	require.ErrorIs(t, err, product.ErrNotFound)

	updated, err := r.AttachMedia(ctx, p.ID, product.MediaVideo, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, []string{"clip.mp4"}, updated.Videos)
	assert.Empty(t, updated.Images)

	found, err := r.FindByMedia(ctx, product.MediaVideo, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = r.FindByMedia(ctx, product.MediaImage, "clip.mp4")
	require.ErrorIs(t, err, product.ErrMediaNotFound)
}
