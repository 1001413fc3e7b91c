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

// GetEmbedding returns the user's stored embedding.
func (db *DB) GetEmbedding(ctx context.Context, userID string) (e *sense.UserEmbedding, err error) {
	defer observe("get_embedding", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	e, err = scanEmbedding(db.conn.QueryRowContext(ctx,
		`SELECT user_id, embedding, version, updated_at FROM user_embeddings WHERE user_id = ?`, userID))
	return e, err
}

// UpsertEmbedding replaces the user's embedding unconditionally.
func (db *DB) UpsertEmbedding(ctx context.Context, userID string, vec []float64) (e *sense.UserEmbedding, err error) {
	defer observe("upsert_embedding", time.Now(), &err)
	return db.writeEmbedding(ctx, userID, nil, vec)
}

// SwapEmbedding replaces the embedding only if its version equals expected.
func (db *DB) SwapEmbedding(ctx context.Context, userID string, expected int64, vec []float64) (e *sense.UserEmbedding, err error) {
	defer observe("swap_embedding", time.Now(), &err)
	return db.writeEmbedding(ctx, userID, &expected, vec)
}

func (db *DB) writeEmbedding(ctx context.Context, userID string, expected *int64, vec []float64) (*sense.UserEmbedding, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	body, err := encodeJSON(vec)
	if err != nil {
		return nil, err
	}

	unlock := db.lockKey("embedding:" + userID)
	defer unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM user_embeddings WHERE user_id = ?`, userID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read embedding version: %w", err)
	}
	if expected != nil && *expected != current {
		return nil, fmt.Errorf("%w: user %s at version %d, expected %d", sense.ErrConflict, userID, current, *expected)
	}

	row := &sense.UserEmbedding{
		UserID:    userID,
		Embedding: append([]float64(nil), vec...),
		Version:   current + 1,
		UpdatedAt: db.timestamp(),
	}
	if current == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_embeddings (user_id, embedding, version, updated_at) VALUES (?, ?, ?, ?)`,
			userID, body, row.Version, row.UpdatedAt)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE user_embeddings SET embedding = ?, version = ?, updated_at = ? WHERE user_id = ?`,
			body, row.Version, row.UpdatedAt, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("write embedding: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit embedding: %w", err)
	}
	return row, nil
}

func scanEmbedding(row *sql.Row) (*sense.UserEmbedding, error) {
	var (
		e    sense.UserEmbedding
		body string
	)
	err := row.Scan(&e.UserID, &body, &e.Version, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sense.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	if err := decodeJSON(body, &e.Embedding); err != nil {
		return nil, fmt.Errorf("embedding for %s: %w", e.UserID, err)
	}
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}
