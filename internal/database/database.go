package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the orders table if needed. seq preserves submission
// order for listing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS orders (
	seq BIGSERIAL,
	order_id TEXT PRIMARY KEY,
	full_name TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	print_type TEXT NOT NULL,
	copies INTEGER NOT NULL CHECK (copies > 0),
	paper_size TEXT NOT NULL,
	print_side TEXT NOT NULL,
	selected_pages TEXT NOT NULL,
	special_instructions TEXT NOT NULL DEFAULT '',
	files JSONB NOT NULL,
	order_date TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	total_cost NUMERIC(12,2) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);`
	_, err := pool.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
