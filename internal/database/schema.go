// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the tables and indexes if they do not exist
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS genre_layers_id_seq START 1`,

		// Append-only; the newest created_at wins. genre_names, weight and
		// bias are JSON text.
		`CREATE TABLE IF NOT EXISTS genre_layers (
			id BIGINT PRIMARY KEY DEFAULT nextval('genre_layers_id_seq'),
			name TEXT NOT NULL,
			genre_names TEXT NOT NULL,
			weight TEXT NOT NULL,
			bias TEXT,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS user_embeddings (
			user_id TEXT PRIMARY KEY,
			embedding TEXT NOT NULL,
			version BIGINT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS item_embeddings (
			item_type TEXT NOT NULL,
			item_id BIGINT NOT NULL,
			embedding TEXT NOT NULL,
			genres TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (item_type, item_id)
		)`,

		`CREATE TABLE IF NOT EXISTS user_genre_preferences (
			user_id TEXT NOT NULL,
			genre TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (user_id, genre)
		)`,

		`CREATE TABLE IF NOT EXISTS ratings (
			user_id TEXT NOT NULL,
			item_type TEXT NOT NULL,
			item_id BIGINT NOT NULL,
			rating DOUBLE NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, item_type, item_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_genre_layers_created ON genre_layers(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_item ON ratings(item_type, item_id)`,
	}
}
