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

const latestLayerOrder = `ORDER BY created_at DESC, id DESC LIMIT 1`

// LatestModel returns the newest genre layer.
func (db *DB) LatestModel(ctx context.Context) (m *sense.FactorModel, err error) {
	defer observe("latest_model", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		labels, weight string
		bias           sql.NullString
	)
	m = &sense.FactorModel{}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, name, genre_names, weight, bias, created_at FROM genre_layers `+latestLayerOrder,
	).Scan(&m.ID, &m.Name, &labels, &weight, &bias, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sense.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest genre layer: %w", err)
	}

	if err := decodeJSON(labels, &m.GenreLabels); err != nil {
		return nil, fmt.Errorf("genre layer %d genre_names: %w", m.ID, err)
	}
	if err := decodeJSON(weight, &m.Weight); err != nil {
		return nil, fmt.Errorf("genre layer %d weight: %w", m.ID, err)
	}
	if bias.Valid {
		if err := decodeJSON(bias.String, &m.Bias); err != nil {
			return nil, fmt.Errorf("genre layer %d bias: %w", m.ID, err)
		}
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

// LatestModelStamp reads only the id and timestamp of the newest layer.
func (db *DB) LatestModelStamp(ctx context.Context) (s sense.ModelStamp, err error) {
	defer observe("latest_model_stamp", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM genre_layers `+latestLayerOrder,
	).Scan(&s.ID, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sense.ModelStamp{}, sense.ErrNotFound
	}
	if err != nil {
		return sense.ModelStamp{}, fmt.Errorf("query latest genre layer stamp: %w", err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

// InsertModel appends a genre layer. The stored created_at is strictly
// later than every existing layer's.
func (db *DB) InsertModel(ctx context.Context, in *sense.FactorModel) (m *sense.FactorModel, err error) {
	defer observe("insert_model", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	labels, err := encodeJSON(in.GenreLabels)
	if err != nil {
		return nil, err
	}
	weight, err := encodeJSON(in.Weight)
	if err != nil {
		return nil, err
	}
	bias, err := nullableJSON(in.Bias)
	if err != nil {
		return nil, err
	}

	unlock := db.lockKey("genre_layers")
	defer unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	createdAt := db.timestamp()
	var last sql.NullTime
	if err := tx.QueryRowContext(ctx, `SELECT max(created_at) FROM genre_layers`).Scan(&last); err != nil {
		return nil, fmt.Errorf("query newest layer time: %w", err)
	}
	if last.Valid && !createdAt.After(last.Time.UTC()) {
		createdAt = last.Time.UTC().Add(time.Microsecond)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT nextval('genre_layers_id_seq')`).Scan(&id); err != nil {
		return nil, fmt.Errorf("allocate layer id: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO genre_layers (id, name, genre_names, weight, bias, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, in.Name, labels, weight, bias, createdAt,
	); err != nil {
		return nil, fmt.Errorf("insert genre layer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit genre layer: %w", err)
	}

	out := *in
	out.ID = id
	out.CreatedAt = createdAt
	return &out, nil
}
