package observability

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// sqlstate codes worth their own label; everything else is pg_<code>
var pgErrClasses = map[string]string{
	"23505": "unique_violation",
	"23503": "foreign_key_violation",
	"40001": "serialization_failure",
	"40P01": "deadlock",
	"57014": "query_canceled",
}

// ObserveDB times fn under the store operation op. A missing row is a normal
// outcome for lookups and is not counted as an error.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Seconds()

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		status = "no_rows"
	default:
		status = "error"
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}

	p.DbQueryDuration.WithLabelValues(op, status).Observe(elapsed)
	return err
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, ok := pgErrClasses[pgErr.Code]; ok {
			return class
		}
		return "pg_" + pgErr.Code
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return "connection"
	}
	return "unknown"
}
