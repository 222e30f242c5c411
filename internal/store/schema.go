package store

import (
	"context"
	"fmt"
	"log"
)

// schemas holds the create-if-absent DDL per driver name.
var schemas = map[string][]string{
	"sqlite": {
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			category_id INTEGER NOT NULL REFERENCES categories(id),
			image_name TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_category_id ON items(category_id)`,
	},
	"postgres": {
		`CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			category_id BIGINT NOT NULL REFERENCES categories(id),
			image_name TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_category_id ON items(category_id)`,
	},
}

// EnsureSchema creates the categories and items tables if they are absent.
// It is safe to run on every startup.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	driverName := s.db.DriverName()
	stmts, ok := schemas[driverName]
	if !ok {
		return fmt.Errorf("store: no schema for driver %q", driverName)
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: EnsureSchema failed: %w", err)
		}
	}
	log.Printf("INFO: Schema ensured for %s database.", driverName)
	return nil
}
