// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/dobbysense/internal/sense"
)

// ItemSignal returns the vector and genres of one item.
func (db *DB) ItemSignal(ctx context.Context, itemType sense.ItemType, itemID int64) (it *sense.ItemSignal, err error) {
	defer observe("item_signal", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var embedding, genres string
	err = db.conn.QueryRowContext(ctx,
		`SELECT embedding, genres FROM item_embeddings WHERE item_type = ? AND item_id = ?`,
		string(itemType), itemID,
	).Scan(&embedding, &genres)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sense.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item signal: %w", err)
	}

	it = &sense.ItemSignal{ItemType: itemType, ItemID: itemID}
	if err := decodeJSON(embedding, &it.Embedding); err != nil {
		return nil, fmt.Errorf("item %s/%d embedding: %w", itemType, itemID, err)
	}
	if err := decodeJSON(genres, &it.Genres); err != nil {
		return nil, fmt.Errorf("item %s/%d genres: %w", itemType, itemID, err)
	}
	return it, nil
}

// UpsertItemSignal inserts or replaces one item.
func (db *DB) UpsertItemSignal(ctx context.Context, it *sense.ItemSignal) (err error) {
	defer observe("upsert_item_signal", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	embedding := it.Embedding
	if embedding == nil {
		embedding = []float64{}
	}
	genres := it.Genres
	if genres == nil {
		genres = []string{}
	}
	emb, err := encodeJSON(embedding)
	if err != nil {
		return err
	}
	gen, err := encodeJSON(genres)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO item_embeddings (item_type, item_id, embedding, genres, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(it.ItemType), it.ItemID, emb, gen, db.timestamp())
	if err != nil {
		return fmt.Errorf("upsert item signal: %w", err)
	}
	return nil
}
