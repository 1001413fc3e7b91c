// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package kvstore

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/dobbysense/internal/sense"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func testLayer(name string) *sense.FactorModel {
	return &sense.FactorModel{
		Name:        name,
		GenreLabels: []string{"Action", "Drama", "Horror"},
		Weight:      [][]float64{{1, 0, 2}, {0, 3, 1}},
		Bias:        []float64{0.5, -0.5},
	}
}

func TestStore_Layers(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestModel(ctx); !errors.Is(err, sense.ErrNotFound) {
		t.Fatalf("empty err = %v, want ErrNotFound", err)
	}
	if _, err := s.LatestModelStamp(ctx); !errors.Is(err, sense.ErrNotFound) {
		t.Fatalf("empty stamp err = %v, want ErrNotFound", err)
	}

	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	a, err := s.InsertModel(ctx, testLayer("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.InsertModel(ctx, testLayer("b"))
	if err != nil {
		t.Fatal(err)
	}
	if b.ID <= a.ID || !b.CreatedAt.After(a.CreatedAt) {
		t.Errorf("ordering: a=%d@%v b=%d@%v", a.ID, a.CreatedAt, b.ID, b.CreatedAt)
	}

	got, err := s.LatestModel(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "b" || got.ID != b.ID || !reflect.DeepEqual(got.Weight, b.Weight) {
		t.Errorf("latest = %+v", got)
	}
	stamp, err := s.LatestModelStamp(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stamp.Key() != got.Stamp().Key() {
		t.Errorf("stamp %q != model %q", stamp.Key(), got.Stamp().Key())
	}
}

func TestStore_Embeddings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetEmbedding(ctx, "u"); !errors.Is(err, sense.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	row, err := s.SwapEmbedding(ctx, "u", 0, []float64{1})
	if err != nil || row.Version != 1 {
		t.Fatalf("insert: %+v %v", row, err)
	}
	if _, err := s.SwapEmbedding(ctx, "u", 0, []float64{2}); !errors.Is(err, sense.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	row, err = s.UpsertEmbedding(ctx, "u", []float64{3})
	if err != nil || row.Version != 2 {
		t.Fatalf("upsert: %+v %v", row, err)
	}
	got, _ := s.GetEmbedding(ctx, "u")
	if !reflect.DeepEqual(got.Embedding, []float64{3}) || got.Version != 2 {
		t.Errorf("stored = %+v", got)
	}
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.UpsertEmbedding(ctx, "u", []float64{float64(i)}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if !errors.Is(err, sense.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
		failed++
	}
	got, err := s.GetEmbedding(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != int64(writers-failed) {
		t.Errorf("version = %d, want %d", got.Version, writers-failed)
	}
}

func TestStore_ItemsPreferencesRatings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	item := &sense.ItemSignal{ItemType: sense.ItemShow, ItemID: 9, Embedding: []float64{1, 2}, Genres: []string{"Drama"}}
	if err := s.UpsertItemSignal(ctx, item); err != nil {
		t.Fatal(err)
	}
	got, err := s.ItemSignal(ctx, sense.ItemShow, 9)
	if err != nil || !reflect.DeepEqual(got, item) {
		t.Errorf("item = %+v, %v", got, err)
	}
	if _, err := s.ItemSignal(ctx, sense.ItemMovie, 9); !errors.Is(err, sense.ErrNotFound) {
		t.Errorf("movie 9 err = %v", err)
	}

	if err := s.ReplaceGenrePreferences(ctx, "u", []string{"Drama", "Drama", "War"}); err != nil {
		t.Fatal(err)
	}
	prefs, _ := s.GenrePreferences(ctx, "u")
	if !reflect.DeepEqual(prefs, []string{"Drama", "War"}) {
		t.Errorf("prefs = %v", prefs)
	}
	none, err := s.GenrePreferences(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Errorf("nobody prefs = %v, %v", none, err)
	}

	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	s.now = func() time.Time { return now }
	first, err := s.UpsertRating(ctx, &sense.Rating{UserID: "u", ItemType: sense.ItemMovie, ItemID: 1, Rating: 5})
	if err != nil {
		t.Fatal(err)
	}
	now = t0.Add(time.Hour)
	second, err := s.UpsertRating(ctx, &sense.Rating{UserID: "u", ItemType: sense.ItemMovie, ItemID: 1, Rating: 8})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) || second.Rating != 8 {
		t.Errorf("second = %+v", second)
	}
	if _, err := s.UpsertRating(ctx, &sense.Rating{UserID: "u", ItemType: sense.ItemShow, ItemID: 2, Rating: 7}); err != nil {
		t.Fatal(err)
	}
	var show sense.Rating
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, ratingKey("u", sense.ItemShow, 2), &show)
	}); err != nil || show.Rating != 7 {
		t.Errorf("show rating = %+v, %v", show, err)
	}
}
