package database

import (
	"context"
	"fmt"
)

// The unique constraints double as the lookup indexes the reconciler needs:
// stores(chain_id, ext_store_id), store_products(store_id, ext_product_id)
// and product_prices(store_product_id, valid_date).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS chains (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		slug TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS stores (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		chain_id BIGINT NOT NULL REFERENCES chains(id),
		ext_store_id TEXT NOT NULL,
		ext_name TEXT NOT NULL DEFAULT '',
		ext_store_type TEXT NOT NULL DEFAULT '',
		ext_street_address TEXT NOT NULL DEFAULT '',
		ext_city TEXT NOT NULL DEFAULT '',
		ext_zipcode TEXT NOT NULL DEFAULT '',
		UNIQUE (chain_id, ext_store_id)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		barcode VARCHAR(40) PRIMARY KEY,
		ext_name TEXT NOT NULL DEFAULT '',
		ext_brand TEXT NOT NULL DEFAULT '',
		ext_category TEXT NOT NULL DEFAULT '',
		ext_unit TEXT NOT NULL DEFAULT '',
		ext_quantity TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS store_products (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		store_id BIGINT NOT NULL REFERENCES stores(id),
		barcode VARCHAR(40) NOT NULL REFERENCES products(barcode),
		ext_product_id TEXT NOT NULL,
		UNIQUE (store_id, ext_product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS product_prices (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		store_product_id BIGINT NOT NULL REFERENCES store_products(id),
		valid_date DATE NOT NULL,
		price NUMERIC(10,2) NOT NULL,
		unit_price NUMERIC(10,2),
		best_price_30 NUMERIC(10,2),
		anchor_price NUMERIC(10,2),
		special_price NUMERIC(10,2),
		UNIQUE (store_product_id, valid_date)
	)`,
}

// EnsureSchema creates all tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops all tables. Used by --dropdb and integration tests.
func (db *DB) DropSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx,
		`DROP TABLE IF EXISTS product_prices, store_products, products, stores, chains CASCADE`)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}
