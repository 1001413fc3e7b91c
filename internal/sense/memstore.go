// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Repository. Values are copied on the way in
// and out so callers never share slices with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	models     []*FactorModel
	embeddings map[string]*UserEmbedding
	items      map[string]*ItemSignal
	prefs      map[string][]string
	ratings    map[string]*Rating
	now        func() time.Time
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		embeddings: make(map[string]*UserEmbedding),
		items:      make(map[string]*ItemSignal),
		prefs:      make(map[string][]string),
		ratings:    make(map[string]*Rating),
		now:        time.Now,
	}
}

func itemKey(t ItemType, id int64) string {
	return fmt.Sprintf("%s/%d", t, id)
}

func (s *MemoryStore) LatestModel(ctx context.Context) (*FactorModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.models) == 0 {
		return nil, ErrNotFound
	}
	return cloneModel(s.models[len(s.models)-1]), nil
}

func (s *MemoryStore) LatestModelStamp(ctx context.Context) (ModelStamp, error) {
	if err := ctx.Err(); err != nil {
		return ModelStamp{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.models) == 0 {
		return ModelStamp{}, ErrNotFound
	}
	return s.models[len(s.models)-1].Stamp(), nil
}

// InsertModel appends m. CreatedAt is assigned by the store and kept
// strictly increasing so "latest" is unambiguous.
func (s *MemoryStore) InsertModel(ctx context.Context, m *FactorModel) (*FactorModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneModel(m)
	stored.ID = int64(len(s.models) + 1)
	stored.CreatedAt = s.now().UTC()
	if n := len(s.models); n > 0 {
		if last := s.models[n-1].CreatedAt; !stored.CreatedAt.After(last) {
			stored.CreatedAt = last.Add(time.Microsecond)
		}
	}
	s.models = append(s.models, stored)
	return cloneModel(stored), nil
}

func (s *MemoryStore) GetEmbedding(ctx context.Context, userID string) (*UserEmbedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.embeddings[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEmbedding(e), nil
}

func (s *MemoryStore) UpsertEmbedding(ctx context.Context, userID string, vec []float64) (*UserEmbedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(userID, vec), nil
}

func (s *MemoryStore) SwapEmbedding(ctx context.Context, userID string, expected int64, vec []float64) (*UserEmbedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if e, ok := s.embeddings[userID]; ok {
		current = e.Version
	}
	if current != expected {
		return nil, fmt.Errorf("%w: user %s at version %d, expected %d", ErrConflict, userID, current, expected)
	}
	return s.writeLocked(userID, vec), nil
}

// writeLocked must be called with mu held for writing.
func (s *MemoryStore) writeLocked(userID string, vec []float64) *UserEmbedding {
	var version int64 = 1
	if e, ok := s.embeddings[userID]; ok {
		version = e.Version + 1
	}
	e := &UserEmbedding{
		UserID:    userID,
		Embedding: append([]float64(nil), vec...),
		Version:   version,
		UpdatedAt: s.now().UTC(),
	}
	s.embeddings[userID] = e
	return cloneEmbedding(e)
}

func (s *MemoryStore) ItemSignal(ctx context.Context, itemType ItemType, itemID int64) (*ItemSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemKey(itemType, itemID)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneItem(it), nil
}

func (s *MemoryStore) UpsertItemSignal(ctx context.Context, item *ItemSignal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[itemKey(item.ItemType, item.ItemID)] = cloneItem(item)
	return nil
}

func (s *MemoryStore) ReplaceGenrePreferences(ctx context.Context, userID string, genres []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[userID] = append([]string(nil), genres...)
	return nil
}

func (s *MemoryStore) GenrePreferences(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.prefs[userID]...), nil
}

// Ping reports whether ctx is still live; the store itself cannot fail.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) UpsertRating(ctx context.Context, r *Rating) (*Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.UserID + "|" + itemKey(r.ItemType, r.ItemID)
	now := s.now().UTC()
	stored := *r
	stored.UpdatedAt = now
	if prev, ok := s.ratings[key]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	s.ratings[key] = &stored
	out := stored
	return &out, nil
}

func cloneModel(m *FactorModel) *FactorModel {
	c := *m
	c.GenreLabels = append([]string(nil), m.GenreLabels...)
	c.Weight = make([][]float64, len(m.Weight))
	for i, row := range m.Weight {
		c.Weight[i] = append([]float64(nil), row...)
	}
	if m.Bias != nil {
		c.Bias = append([]float64(nil), m.Bias...)
	}
	return &c
}

func cloneEmbedding(e *UserEmbedding) *UserEmbedding {
	c := *e
	c.Embedding = append([]float64(nil), e.Embedding...)
	return &c
}

func cloneItem(it *ItemSignal) *ItemSignal {
	c := *it
	c.Embedding = append([]float64(nil), it.Embedding...)
	c.Genres = append([]string(nil), it.Genres...)
	return &c
}
