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

// ReplaceGenrePreferences swaps the user's preference set in one transaction.
func (db *DB) ReplaceGenrePreferences(ctx context.Context, userID string, genres []string) (err error) {
	defer observe("replace_preferences", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockKey("prefs:" + userID)
	defer unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_genre_preferences WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	seen := make(map[string]struct{}, len(genres))
	for i, g := range genres {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_genre_preferences (user_id, genre, position) VALUES (?, ?, ?)`,
			userID, g, i,
		); err != nil {
			return fmt.Errorf("insert preference %q: %w", g, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit preferences: %w", err)
	}
	return nil
}

// GenrePreferences returns the user's genres in the order they were given.
func (db *DB) GenrePreferences(ctx context.Context, userID string) (genres []string, err error) {
	defer observe("get_preferences", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT genre FROM user_genre_preferences WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer closeWithLog(rows, "preference rows")

	genres = []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
