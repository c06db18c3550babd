package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/vmarkevych/storefront/internal/domain/product"
)

type ProductsRepo struct {
	mu    sync.RWMutex
	items map[string]product.Product
}

func NewProductsRepo() *ProductsRepo {
	return &ProductsRepo{
		items: make(map[string]product.Product),
	}
}

func (r *ProductsRepo) Create(_ context.Context, req product.CreateProductRequest) (product.Product, error) {
	p := product.NewFromCreateRequest(req)

	r.mu.Lock()
	r.items[p.ID] = p
	r.mu.Unlock()

	return p.Clone(), nil
}

// Put stores p as is. Used to seed fixtures.
func (r *ProductsRepo) Put(p product.Product) {
	r.mu.Lock()
	r.items[p.ID] = p.Clone()
	r.mu.Unlock()
}

func (r *ProductsRepo) GetByID(_ context.Context, id string) (product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p.Clone(), nil
}

// List returns products ordered by (createdAt, id), strictly after the cursor
// when one is given. hasMore reports whether another page exists.
func (r *ProductsRepo) List(_ context.Context, f product.ListFilter) ([]product.Product, bool, error) {
	r.mu.RLock()
	all := make([]product.Product, 0, len(r.items))
	for _, p := range r.items {
		all = append(all, p.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	out := make([]product.Product, 0, f.Limit)
	for _, p := range all {
		if f.AfterCreatedAt != nil && !after(p, *f.AfterCreatedAt, f.AfterID) {
			continue
		}
		if len(out) == f.Limit {
			return out, true, nil
		}
		out = append(out, p)
	}
	return out, false, nil
}

func after(p product.Product, createdAt time.Time, id string) bool {
	if p.CreatedAt.Equal(createdAt) {
		return p.ID > id
	}
	return p.CreatedAt.After(createdAt)
}

func (r *ProductsRepo) AttachMedia(_ context.Context, id string, kind product.MediaKind, fileName string) (product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}

	p = p.Clone()
	if kind == product.MediaVideo {
		p.Videos = append(p.Videos, fileName)
	} else {
		p.Images = append(p.Images, fileName)
	}
	p.UpdatedAt = time.Now().UTC()
	r.items[id] = p

	return p.Clone(), nil
}

func (r *ProductsRepo) FindByMedia(_ context.Context, kind product.MediaKind, fileName string) (product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.items {
		files := p.Images
		if kind == product.MediaVideo {
			files = p.Videos
		}
		if slices.Contains(files, fileName) {
			return p.Clone(), nil
		}
	}
	return product.Product{}, product.ErrMediaNotFound
}
