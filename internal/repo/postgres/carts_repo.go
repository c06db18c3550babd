package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vmarkevych/storefront/internal/domain/cart"
	"github.com/vmarkevych/storefront/internal/observability"
)

// CartsRepo stores one row per active cart; line items live in a JSONB
// column. Checkout moves the row into orders in one transaction.
type CartsRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewCartsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CartsRepo {
	return &CartsRepo{pool: pool, observer: observer{prom: prom}}
}

func (r *CartsRepo) FindActiveByPrincipal(ctx context.Context, principalID string) (cart.Cart, error) {
	var c cart.Cart

	err := r.observe("carts.find_active", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, principal_id, items, created_at, updated_at
			FROM carts
			WHERE principal_id = $1`,
			principalID,
		).Scan(&c.ID, &c.PrincipalID, &c.Items, &c.CreatedAt, &c.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Cart{}, cart.ErrCartNotFound
		}
		return cart.Cart{}, err
	}
	if c.Items == nil {
		c.Items = []cart.LineItem{}
	}
	return c, nil
}

func (r *CartsRepo) Create(ctx context.Context, c cart.Cart) error {
	err := r.observe("carts.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO carts (id, principal_id, items, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)`,
			c.ID, c.PrincipalID, c.Items, c.CreatedAt, c.UpdatedAt,
		)
		return err
	})
	if IsUniqueViolation(err) {
		return cart.ErrActiveCartExists
	}
	return err
}

func (r *CartsRepo) Update(ctx context.Context, c cart.Cart) error {
	var affected int64

	err := r.observe("carts.update", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE carts SET items = $3, updated_at = $4
			WHERE id = $1 AND principal_id = $2`,
			c.ID, c.PrincipalID, c.Items, c.UpdatedAt,
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return cart.ErrCartNotFound
	}
	return nil
}

func (r *CartsRepo) AppendOrder(ctx context.Context, o cart.Order) error {
	return r.observe("carts.append_order", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		tag, err := tx.Exec(ctx,
			`DELETE FROM carts WHERE id = $1 AND principal_id = $2`,
			o.ID, o.PrincipalID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return cart.ErrCartNotFound
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO orders (id, principal_id, items, total_price, created_at, checked_out_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, o.PrincipalID, o.Items, o.TotalPrice, o.CreatedAt, o.CheckedOutAt,
		)
		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

func (r *CartsRepo) ListOrders(ctx context.Context, principalID string) ([]cart.Order, error) {
	out := make([]cart.Order, 0)

	err := r.observe("orders.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, principal_id, items, total_price, created_at, checked_out_at
			FROM orders
			WHERE principal_id = $1
			ORDER BY checked_out_at ASC, id ASC`,
			principalID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var o cart.Order
			if err := rows.Scan(&o.ID, &o.PrincipalID, &o.Items, &o.TotalPrice, &o.CreatedAt, &o.CheckedOutAt); err != nil {
				return err
			}
			out = append(out, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
