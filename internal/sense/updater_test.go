// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"context"
	"errors"
	"testing"
)

func rate(user string, id int64, rating float64) *RatingEvent {
	return &RatingEvent{UserID: user, ItemType: ItemMovie, ItemID: id, Rating: rating}
}

func itemStore(t *testing.T, items ...*ItemSignal) *MemoryStore {
	t.Helper()
	s := seededStore(t, testModel())
	for _, it := range items {
		if err := s.UpsertItemSignal(context.Background(), it); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestEMAStrategy(t *testing.T) {
	t.Parallel()

	s := EMAStrategy{Alpha: 0.5, LikeThreshold: 6}
	if s.Accepts(5.9) || !s.Accepts(6) {
		t.Error("threshold not applied at 6")
	}

	cur := []float64{0, 2}
	next, err := s.Blend(cur, []float64{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	assertVector(t, next, []float64{1, 1})
	assertVector(t, cur, []float64{0, 2})

	if _, err := s.Blend([]float64{1}, []float64{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestNormalizeScore(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want float64 }{
		{1, 2}, {3, 6}, {5, 10}, {6, 6}, {10, 10},
	}
	for _, tt := range tests {
		if got := NormalizeScore(tt.in); got != tt.want {
			t.Errorf("NormalizeScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUpdater_Apply(t *testing.T) {
	t.Parallel()

	liked := &ItemSignal{ItemType: ItemMovie, ItemID: 1, Embedding: []float64{2, 2}, Genres: []string{"Drama"}}
	wide := &ItemSignal{ItemType: ItemMovie, ItemID: 2, Embedding: []float64{1, 1, 1}}
	bare := &ItemSignal{ItemType: ItemMovie, ItemID: 3, Genres: []string{"Horror"}}
	unknownGenres := &ItemSignal{ItemType: ItemMovie, ItemID: 4, Embedding: []float64{4, 4}, Genres: []string{"Nope"}}

	tests := []struct {
		name     string
		seed     SeedPolicy
		existing []float64
		ev       *RatingEvent
		want     Outcome
		wantVec  []float64
	}{
		{
			name:     "liked item nudges",
			existing: []float64{0, 0},
			ev:       rate("u", 1, 8),
			want:     OutcomeUpdated,
			wantVec:  []float64{0.1, 0.1},
		},
		{
			name:     "five star scale doubled",
			existing: []float64{0, 0},
			ev:       rate("u", 1, 4),
			want:     OutcomeUpdated,
			wantVec:  []float64{0.1, 0.1},
		},
		{
			name:     "below threshold",
			existing: []float64{0, 0},
			ev:       rate("u", 1, 2),
			want:     OutcomeBelowThreshold,
			wantVec:  []float64{0, 0},
		},
		{
			name:     "unknown item",
			existing: []float64{0, 0},
			ev:       rate("u", 99, 9),
			want:     OutcomeNoItemSignal,
			wantVec:  []float64{0, 0},
		},
		{
			name:     "item without vector",
			existing: []float64{0, 0},
			ev:       rate("u", 3, 9),
			want:     OutcomeNoItemSignal,
			wantVec:  []float64{0, 0},
		},
		{
			name:     "dimension mismatch",
			existing: []float64{0, 0},
			ev:       rate("u", 2, 9),
			want:     OutcomeDimensionMismatch,
			wantVec:  []float64{0, 0},
		},
		{
			name:    "seed from genres",
			seed:    SeedGenres,
			ev:      rate("u", 1, 9),
			want:    OutcomeSeeded,
			wantVec: []float64{0.5, 2.5},
		},
		{
			name:    "seed from genres without vector",
			seed:    SeedGenres,
			ev:      rate("u", 3, 9),
			want:    OutcomeSeeded,
			wantVec: []float64{2.5, 0.5},
		},
		{
			name:    "seed genres falls back to item vector",
			seed:    SeedGenres,
			ev:      rate("u", 4, 9),
			want:    OutcomeSeeded,
			wantVec: []float64{4, 4},
		},
		{
			name:    "seed from item",
			seed:    SeedItem,
			ev:      rate("u", 1, 9),
			want:    OutcomeSeeded,
			wantVec: []float64{2, 2},
		},
		{
			name: "seed item without vector",
			seed: SeedItem,
			ev:   rate("u", 3, 9),
			want: OutcomeNoSeed,
		},
		{
			name: "seed none",
			seed: SeedNone,
			ev:   rate("u", 1, 9),
			want: OutcomeNoSeed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := itemStore(t, liked, wide, bare, unknownGenres)
			if tt.existing != nil {
				if _, err := store.UpsertEmbedding(ctx, "u", tt.existing); err != nil {
					t.Fatal(err)
				}
			}
			opts := []UpdaterOption{}
			if tt.seed != "" {
				opts = append(opts, WithSeedPolicy(tt.seed))
			}
			u := NewUpdater(store, store, store, opts...)

			got, err := u.Apply(ctx, tt.ev)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got != tt.want {
				t.Fatalf("outcome = %s, want %s", got, tt.want)
			}

			row, err := store.GetEmbedding(ctx, "u")
			if tt.wantVec == nil {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("embedding unexpectedly stored: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			assertVector(t, row.Embedding, tt.wantVec)
		})
	}
}

// racingStore lets another writer land between read and swap.
type racingStore struct {
	*MemoryStore
}

func (r racingStore) GetEmbedding(ctx context.Context, userID string) (*UserEmbedding, error) {
	row, err := r.MemoryStore.GetEmbedding(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := r.MemoryStore.UpsertEmbedding(ctx, userID, []float64{9, 9}); err != nil {
		return nil, err
	}
	return row, nil
}

func TestUpdater_Apply_Conflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := itemStore(t, &ItemSignal{ItemType: ItemMovie, ItemID: 1, Embedding: []float64{1, 1}})
	if _, err := store.UpsertEmbedding(ctx, "u", []float64{0, 0}); err != nil {
		t.Fatal(err)
	}
	l := &recordingListener{}
	u := NewUpdater(racingStore{store}, store, store, WithUpdateListener(l))

	got, err := u.Apply(ctx, rate("u", 1, 9))
	if err != nil {
		t.Fatal(err)
	}
	if got != OutcomeConflict {
		t.Fatalf("outcome = %s, want conflict", got)
	}
	row, _ := store.GetEmbedding(ctx, "u")
	assertVector(t, row.Embedding, []float64{9, 9})
	if n := len(l.all()); n != 0 {
		t.Errorf("listener called %d times on conflict", n)
	}
}

func TestUpdater_Apply_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := itemStore(t, &ItemSignal{ItemType: ItemMovie, ItemID: 1, Embedding: []float64{1, 1}})

	if got, err := NewUpdater(store, store, store).Apply(ctx, &RatingEvent{ItemType: ItemMovie, ItemID: 1, Rating: 9}); got != OutcomeError || !errors.Is(err, ErrInvalidRating) {
		t.Errorf("invalid event: %s, %v", got, err)
	}

	failingItems := staticItems{err: errBackend}
	if got, err := NewUpdater(store, failingItems, store).Apply(ctx, rate("u", 1, 9)); got != OutcomeError || !errors.Is(err, errBackend) {
		t.Errorf("item failure: %s, %v", got, err)
	}

	if got, err := NewUpdater(failingEmbeddings{store}, store, store, WithSeedPolicy(SeedItem)).Apply(ctx, rate("u", 1, 9)); got != OutcomeError || !errors.Is(err, errBackend) {
		t.Errorf("write failure: %s, %v", got, err)
	}
}

func TestUpdater_Apply_NotifiesListener(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := itemStore(t, &ItemSignal{ItemType: ItemMovie, ItemID: 1, Embedding: []float64{1, 1}})
	l := &recordingListener{}
	u := NewUpdater(store, store, store, WithUpdateListener(l), WithSeedPolicy(SeedItem))

	if _, err := u.Apply(ctx, rate("u", 1, 9)); err != nil {
		t.Fatal(err)
	}
	if _, err := u.Apply(ctx, rate("u", 1, 9)); err != nil {
		t.Fatal(err)
	}
	updates := l.all()
	if len(updates) != 2 || updates[0].source != SourceSeed || updates[1].source != SourceRating {
		t.Fatalf("updates = %+v", updates)
	}
	if updates[1].row.Version != 2 {
		t.Errorf("version = %d, want 2", updates[1].row.Version)
	}
}

type staticItems struct {
	item *ItemSignal
	err  error
}

func (s staticItems) ItemSignal(context.Context, ItemType, int64) (*ItemSignal, error) {
	return s.item, s.err
}
