// Package migrations applies the storefront database schema.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// statements are executed in order. Each is idempotent so Apply can run on
// every startup.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS store_products (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		image TEXT NOT NULL DEFAULT '',
		screenshots JSONB,
		features JSONB,
		download_url TEXT NOT NULL DEFAULT '',
		sales BIGINT NOT NULL DEFAULT 0,
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS store_purchases (
		id UUID PRIMARY KEY,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL CHECK (amount >= 0),
		transaction_id TEXT NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'PENDING',
		download_count BIGINT NOT NULL DEFAULT 0,
		last_download_at TIMESTAMPTZ,
		ip_address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS store_purchases_transaction_id_key
		ON store_purchases (transaction_id)`,
	`CREATE TABLE IF NOT EXISTS store_contacts (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'UNREAD',
		ip_address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS store_blog_posts (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		excerpt TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'DRAFT',
		author_id TEXT NOT NULL DEFAULT '',
		author_name TEXT NOT NULL DEFAULT '',
		views BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS store_users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'ADMIN',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// Apply executes every schema statement against the database.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
