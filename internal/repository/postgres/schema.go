package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stores (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		timezone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		unit_price NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (unit_price >= 0),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(id),
		batch_code TEXT NOT NULL,
		expiration_date DATE,
		UNIQUE (product_id, batch_code)
	)`,
	`CREATE TABLE IF NOT EXISTS stock (
		store_id BIGINT NOT NULL REFERENCES stores(id),
		batch_id BIGINT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		reorder_level INTEGER NOT NULL DEFAULT 10 CHECK (reorder_level >= 0),
		PRIMARY KEY (store_id, batch_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id BIGSERIAL PRIMARY KEY,
		store_id BIGINT NOT NULL REFERENCES stores(id),
		sold_at TIMESTAMPTZ NOT NULL,
		total_amount NUMERIC(14, 2) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sale_lines (
		id BIGSERIAL PRIMARY KEY,
		sale_id BIGINT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		batch_id BIGINT NOT NULL REFERENCES batches(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		subtotal NUMERIC(14, 2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_store_sold_at ON sales (store_id, sold_at)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(id),
		batch_id BIGINT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		origin_type TEXT NOT NULL,
		origin_id BIGINT,
		destination_type TEXT NOT NULL,
		destination_id BIGINT,
		moved_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		user_id BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS replenishment_frequencies (
		store_id BIGINT NOT NULL REFERENCES stores(id),
		product_id BIGINT NOT NULL REFERENCES products(id),
		frequency_days INTEGER NOT NULL CHECK (frequency_days BETWEEN 1 AND 3),
		last_replenishment_date DATE,
		PRIMARY KEY (store_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS replenishment_logs (
		id BIGSERIAL PRIMARY KEY,
		store_id BIGINT NOT NULL REFERENCES stores(id),
		product_id BIGINT NOT NULL REFERENCES products(id),
		batch_id BIGINT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		expiration_date DATE NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		user_id BIGINT NOT NULL,
		logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS replenishment_lists (
		id BIGSERIAL PRIMARY KEY,
		store_id BIGINT NOT NULL REFERENCES stores(id),
		list_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		notes TEXT,
		UNIQUE (store_id, list_date)
	)`,
	`CREATE TABLE IF NOT EXISTS replenishment_list_items (
		id BIGSERIAL PRIMARY KEY,
		list_id BIGINT NOT NULL REFERENCES replenishment_lists(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity INTEGER CHECK (quantity >= 0),
		current_stock INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL,
		notes TEXT,
		UNIQUE (list_id, product_id)
	)`,
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	log.Info().Int("statements", len(migrations)).Msg("Schema migrated")
	return nil
}
