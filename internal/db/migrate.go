package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order inside one transaction. Every statement is
// idempotent so Migrate can run on each start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('customer', 'admin')),
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price       NUMERIC(12, 2) NOT NULL CHECK (price > 0),
		images      TEXT[] NOT NULL DEFAULT '{}',
		videos      TEXT[] NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS products_created_at_id_idx ON products (created_at, id)`,
	`CREATE TABLE IF NOT EXISTS carts (
		id           TEXT PRIMARY KEY,
		principal_id TEXT NOT NULL UNIQUE,
		items        JSONB NOT NULL DEFAULT '[]',
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id             TEXT PRIMARY KEY,
		principal_id   TEXT NOT NULL,
		items          JSONB NOT NULL,
		total_price    NUMERIC(12, 2) NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		checked_out_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_principal_idx ON orders (principal_id, checked_out_at)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
