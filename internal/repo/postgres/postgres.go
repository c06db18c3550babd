// Package postgres holds the pgx backed stores used when STORE_DRIVER is
// postgres.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vmarkevych/storefront/internal/observability"
)

type observer struct {
	prom *observability.Prom
}

func (o observer) observe(op string, fn func() error) error {
	if o.prom != nil {
		return o.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}
