// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

// Package kvstore implements the DobbySense repository on BadgerDB for
// deployments that do not want an embedded SQL engine.
package kvstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/dobbysense/internal/logging"
	"github.com/tomtom215/dobbysense/internal/metrics"
	"github.com/tomtom215/dobbysense/internal/sense"
)

const backendName = "badger"

// Key prefixes for BadgerDB storage
const (
	layerKeyPrefix     = "layer:"
	layerHeadKey       = "layer_head"
	layerSeqKey        = "seq:layer"
	embeddingKeyPrefix = "emb:"
	itemKeyPrefix      = "item:"
	prefKeyPrefix      = "pref:"
	ratingKeyPrefix    = "rating:"
)

// maxTxnRetries bounds retries of unconditional writes that lose a
// transaction conflict.
const maxTxnRetries = 5

var _ sense.Repository = (*Store)(nil)

// Store implements sense.Repository on BadgerDB.
type Store struct {
	db     *badger.DB
	layers *badger.Sequence
	now    func() time.Time
}

// Open opens (or creates) a Badger directory. An empty dir keeps
// everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = &badgerLogger{}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logging.Info().Str("dir", dir).Bool("in_memory", dir == "").Msg("Badger repository ready")
	return s, nil
}

// New wraps an open database. Close releases the layer sequence but does
// not close db when the caller opened it.
func New(db *badger.DB) (*Store, error) {
	seq, err := db.GetSequence([]byte(layerSeqKey), 16)
	if err != nil {
		return nil, fmt.Errorf("layer sequence: %w", err)
	}
	return &Store{db: db, layers: seq, now: time.Now}, nil
}

// Close releases the sequence and closes the database.
func (s *Store) Close() error {
	if err := s.layers.Release(); err != nil {
		logging.Warn().Err(err).Msg("Failed to release layer sequence")
	}
	return s.db.Close()
}

// Ping reports whether the database is still open.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// layerRecord is the stored form of a FactorModel; the model's own JSON
// omits the ID.
type layerRecord struct {
	ID    int64              `json:"id"`
	Model *sense.FactorModel `json:"model"`
}

type layerHead struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func layerKey(id int64) []byte {
	k := make([]byte, len(layerKeyPrefix)+8)
	copy(k, layerKeyPrefix)
	binary.BigEndian.PutUint64(k[len(layerKeyPrefix):], uint64(id))
	return k
}

func itemKey(t sense.ItemType, id int64) []byte {
	return []byte(itemKeyPrefix + string(t) + ":" + strconv.FormatInt(id, 10))
}

func ratingKey(userID string, t sense.ItemType, id int64) []byte {
	return []byte(ratingKeyPrefix + userID + ":" + string(t) + ":" + strconv.FormatInt(id, 10))
}

// getJSON decodes key into v, mapping a missing key to sense.ErrNotFound.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return sense.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// update runs fn in a read-write transaction, retrying when Badger reports
// a conflicting concurrent commit.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", sense.ErrConflict, err)
}

func observe(op string, start time.Time, err *error) {
	failed := *err != nil &&
		!errors.Is(*err, sense.ErrNotFound) &&
		!errors.Is(*err, sense.ErrConflict)
	metrics.RecordStoreOperation(backendName, op, time.Since(start), failed)
}

// LatestModel returns the layer the head pointer names.
func (s *Store) LatestModel(ctx context.Context) (m *sense.FactorModel, err error) {
	defer observe("latest_model", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		var head layerHead
		if err := getJSON(txn, []byte(layerHeadKey), &head); err != nil {
			return err
		}
		var rec layerRecord
		if err := getJSON(txn, layerKey(head.ID), &rec); err != nil {
			if errors.Is(err, sense.ErrNotFound) {
				return fmt.Errorf("layer head points at missing layer %d", head.ID)
			}
			return err
		}
		m = rec.Model
		m.ID = rec.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// LatestModelStamp reads only the head pointer.
func (s *Store) LatestModelStamp(ctx context.Context) (st sense.ModelStamp, err error) {
	defer observe("latest_model_stamp", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return sense.ModelStamp{}, err
	}

	var head layerHead
	err = s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(layerHeadKey), &head)
	})
	if err != nil {
		return sense.ModelStamp{}, err
	}
	return sense.ModelStamp{ID: head.ID, CreatedAt: head.CreatedAt}, nil
}

// InsertModel stores a new layer and moves the head pointer to it.
func (s *Store) InsertModel(ctx context.Context, in *sense.FactorModel) (out *sense.FactorModel, err error) {
	defer observe("insert_model", time.Now(), &err)

	next, err := s.layers.Next()
	if err != nil {
		return nil, fmt.Errorf("allocate layer id: %w", err)
	}
	id := int64(next) + 1

	stored := *in
	stored.ID = id
	err = s.update(ctx, func(txn *badger.Txn) error {
		createdAt := s.now().UTC()
		var head layerHead
		switch err := getJSON(txn, []byte(layerHeadKey), &head); {
		case err == nil:
			if !createdAt.After(head.CreatedAt) {
				createdAt = head.CreatedAt.Add(time.Microsecond)
			}
		case !errors.Is(err, sense.ErrNotFound):
			return err
		}
		stored.CreatedAt = createdAt

		if err := setJSON(txn, layerKey(id), layerRecord{ID: id, Model: &stored}); err != nil {
			return err
		}
		return setJSON(txn, []byte(layerHeadKey), layerHead{ID: id, CreatedAt: createdAt})
	})
	if err != nil {
		return nil, fmt.Errorf("insert genre layer: %w", err)
	}
	return &stored, nil
}

// GetEmbedding returns the user's embedding.
func (s *Store) GetEmbedding(ctx context.Context, userID string) (e *sense.UserEmbedding, err error) {
	defer observe("get_embedding", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var row sense.UserEmbedding
	err = s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(embeddingKeyPrefix+userID), &row)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertEmbedding writes vec unconditionally.
func (s *Store) UpsertEmbedding(ctx context.Context, userID string, vec []float64) (e *sense.UserEmbedding, err error) {
	defer observe("upsert_embedding", time.Now(), &err)
	err = s.update(ctx, func(txn *badger.Txn) error {
		var werr error
		e, werr = s.writeEmbedding(txn, userID, nil, vec)
		return werr
	})
	return e, err
}

// SwapEmbedding writes vec only if the stored version equals expected. A
// concurrent commit to the same key is also reported as a conflict.
func (s *Store) SwapEmbedding(ctx context.Context, userID string, expected int64, vec []float64) (e *sense.UserEmbedding, err error) {
	defer observe("swap_embedding", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		var werr error
		e, werr = s.writeEmbedding(txn, userID, &expected, vec)
		return werr
	})
	if errors.Is(err, badger.ErrConflict) {
		return nil, fmt.Errorf("%w: concurrent write for user %s", sense.ErrConflict, userID)
	}
	return e, err
}

func (s *Store) writeEmbedding(txn *badger.Txn, userID string, expected *int64, vec []float64) (*sense.UserEmbedding, error) {
	key := []byte(embeddingKeyPrefix + userID)

	var current sense.UserEmbedding
	if err := getJSON(txn, key, &current); err != nil && !errors.Is(err, sense.ErrNotFound) {
		return nil, err
	}
	if expected != nil && *expected != current.Version {
		return nil, fmt.Errorf("%w: user %s at version %d, expected %d", sense.ErrConflict, userID, current.Version, *expected)
	}

	row := &sense.UserEmbedding{
		UserID:    userID,
		Embedding: append([]float64(nil), vec...),
		Version:   current.Version + 1,
		UpdatedAt: s.now().UTC(),
	}
	if err := setJSON(txn, key, row); err != nil {
		return nil, err
	}
	return row, nil
}

// ItemSignal returns one item's vector and genres.
func (s *Store) ItemSignal(ctx context.Context, itemType sense.ItemType, itemID int64) (it *sense.ItemSignal, err error) {
	defer observe("item_signal", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var item sense.ItemSignal
	err = s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, itemKey(itemType, itemID), &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpsertItemSignal stores one item.
func (s *Store) UpsertItemSignal(ctx context.Context, it *sense.ItemSignal) (err error) {
	defer observe("upsert_item_signal", time.Now(), &err)
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, itemKey(it.ItemType, it.ItemID), it)
	})
}

// ReplaceGenrePreferences overwrites the user's preference list.
func (s *Store) ReplaceGenrePreferences(ctx context.Context, userID string, genres []string) (err error) {
	defer observe("replace_preferences", time.Now(), &err)

	seen := make(map[string]struct{}, len(genres))
	unique := make([]string, 0, len(genres))
	for _, g := range genres {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		unique = append(unique, g)
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, []byte(prefKeyPrefix+userID), unique)
	})
}

// GenrePreferences returns the user's preferences, empty when none.
func (s *Store) GenrePreferences(ctx context.Context, userID string) (genres []string, err error) {
	defer observe("get_preferences", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	genres = []string{}
	err = s.db.View(func(txn *badger.Txn) error {
		err := getJSON(txn, []byte(prefKeyPrefix+userID), &genres)
		if errors.Is(err, sense.ErrNotFound) {
			return nil
		}
		return err
	})
	return genres, err
}

// UpsertRating stores a rating, keeping the original created_at.
func (s *Store) UpsertRating(ctx context.Context, r *sense.Rating) (out *sense.Rating, err error) {
	defer observe("upsert_rating", time.Now(), &err)

	key := ratingKey(r.UserID, r.ItemType, r.ItemID)
	err = s.update(ctx, func(txn *badger.Txn) error {
		now := s.now().UTC()
		stored := *r
		stored.UpdatedAt = now
		stored.CreatedAt = now

		var prev sense.Rating
		switch err := getJSON(txn, key, &prev); {
		case err == nil:
			stored.CreatedAt = prev.CreatedAt
		case !errors.Is(err, sense.ErrNotFound):
			return err
		}
		out = &stored
		return setJSON(txn, key, &stored)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
