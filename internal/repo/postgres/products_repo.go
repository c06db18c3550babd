package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vmarkevych/storefront/internal/domain/product"
	"github.com/vmarkevych/storefront/internal/observability"
)

type ProductsRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewProductsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{pool: pool, observer: observer{prom: prom}}
}

const productColumns = `id, name, description, price, images, videos, created_at, updated_at`

func scanProduct(row pgx.Row) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Images,
		&p.Videos,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Videos == nil {
		p.Videos = []string{}
	}
	return p, err
}

func (r *ProductsRepo) Create(ctx context.Context, req product.CreateProductRequest) (product.Product, error) {
	p := product.NewFromCreateRequest(req)

	err := r.observe("products.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.Name, p.Description, p.Price, p.Images, p.Videos, p.CreatedAt, p.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return product.Product{}, err
	}
	return p, nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	var p product.Product

	err := r.observe("products.get_by_id", func() error {
		var err error
		p, err = scanProduct(r.pool.QueryRow(ctx,
			`SELECT `+productColumns+` FROM products WHERE id = $1`,
			id,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}
	return p, nil
}

// List is keyset paginated on (created_at, id). It reads one extra row to
// tell whether another page exists.
func (r *ProductsRepo) List(ctx context.Context, f product.ListFilter) ([]product.Product, bool, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	argsPosition := 1

	if f.AfterCreatedAt != nil {
		query += fmt.Sprintf(" WHERE (created_at, id) > ($%d, $%d)", argsPosition, argsPosition+1)
		args = append(args, *f.AfterCreatedAt, f.AfterID)
		argsPosition += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d", argsPosition)
	args = append(args, f.Limit+1)

	out := make([]product.Product, 0, f.Limit+1)
	err := r.observe("products.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, false, err
	}

	hasMore := len(out) > f.Limit
	if hasMore {
		out = out[:f.Limit]
	}
	return out, hasMore, nil
}

func (r *ProductsRepo) AttachMedia(ctx context.Context, id string, kind product.MediaKind, fileName string) (product.Product, error) {
	column := "images"
	if kind == product.MediaVideo {
		column = "videos"
	}

	var p product.Product
	err := r.observe("products.attach_media", func() error {
		var err error
		p, err = scanProduct(r.pool.QueryRow(ctx,
			`UPDATE products
				SET `+column+` = array_append(`+column+`, $2),
					updated_at = NOW()
			WHERE id = $1
			RETURNING `+productColumns,
			id, fileName,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}
	return p, nil
}

func (r *ProductsRepo) FindByMedia(ctx context.Context, kind product.MediaKind, fileName string) (product.Product, error) {
	column := "images"
	if kind == product.MediaVideo {
		column = "videos"
	}

	var p product.Product
	err := r.observe("products.find_by_media", func() error {
		var err error
		p, err = scanProduct(r.pool.QueryRow(ctx,
			`SELECT `+productColumns+` FROM products WHERE $1 = ANY(`+column+`) LIMIT 1`,
			fileName,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrMediaNotFound
		}
		return product.Product{}, err
	}
	return p, nil
}

func (r *ProductsRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
