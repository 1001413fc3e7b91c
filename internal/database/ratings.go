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
	"strconv"
	"time"

	"github.com/tomtom215/dobbysense/internal/sense"
)

// UpsertRating stores the user's rating for an item, keeping the original
// created_at on update.
func (db *DB) UpsertRating(ctx context.Context, r *sense.Rating) (out *sense.Rating, err error) {
	defer observe("upsert_rating", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockKey("rating:" + r.UserID + ":" + string(r.ItemType) + ":" + strconv.FormatInt(r.ItemID, 10))
	defer unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	now := db.timestamp()
	stored := *r
	stored.UpdatedAt = now

	var createdAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT created_at FROM ratings WHERE user_id = ? AND item_type = ? AND item_id = ?`,
		r.UserID, string(r.ItemType), r.ItemID,
	).Scan(&createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		stored.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ratings (user_id, item_type, item_id, rating, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			r.UserID, string(r.ItemType), r.ItemID, r.Rating, now, now)
	case err == nil:
		stored.CreatedAt = createdAt.UTC()
		_, err = tx.ExecContext(ctx,
			`UPDATE ratings SET rating = ?, updated_at = ? WHERE user_id = ? AND item_type = ? AND item_id = ?`,
			r.Rating, now, r.UserID, string(r.ItemType), r.ItemID)
	default:
		return nil, fmt.Errorf("read rating: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("write rating: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rating: %w", err)
	}
	return &stored, nil
}
