// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_Models(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if _, err := s.LatestModelStamp(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty stamp err = %v", err)
	}

	a, _ := s.InsertModel(ctx, testModel())
	second := testModel()
	second.Name = "b"
	b, _ := s.InsertModel(ctx, second)
	if !b.CreatedAt.After(a.CreatedAt) {
		t.Errorf("created_at not increasing: %v, %v", a.CreatedAt, b.CreatedAt)
	}

	latest, err := s.LatestModel(ctx)
	if err != nil || latest.Name != "b" {
		t.Fatalf("latest = %+v, %v", latest, err)
	}
	latest.Weight[0][0] = 99
	again, _ := s.LatestModel(ctx)
	if again.Weight[0][0] != 1 {
		t.Error("caller mutation leaked into store")
	}

	stamp, _ := s.LatestModelStamp(ctx)
	if stamp != b.Stamp() {
		t.Errorf("stamp = %+v, want %+v", stamp, b.Stamp())
	}
}

func TestMemoryStore_SwapEmbedding(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	row, err := s.SwapEmbedding(ctx, "u", 0, []float64{1})
	if err != nil || row.Version != 1 {
		t.Fatalf("insert: %+v, %v", row, err)
	}
	if _, err := s.SwapEmbedding(ctx, "u", 0, []float64{2}); !errors.Is(err, ErrConflict) {
		t.Errorf("second insert err = %v, want ErrConflict", err)
	}
	row, err = s.SwapEmbedding(ctx, "u", 1, []float64{3})
	if err != nil || row.Version != 2 {
		t.Fatalf("swap: %+v, %v", row, err)
	}
	if _, err := s.SwapEmbedding(ctx, "u", 1, []float64{4}); !errors.Is(err, ErrConflict) {
		t.Errorf("stale swap err = %v, want ErrConflict", err)
	}
	got, _ := s.GetEmbedding(ctx, "u")
	assertVector(t, got.Embedding, []float64{3})
}

func TestMemoryStore_UpsertRating(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	s.now = func() time.Time { return now }

	first, _ := s.UpsertRating(ctx, &Rating{UserID: "u", ItemType: ItemMovie, ItemID: 1, Rating: 7})
	now = t0.Add(time.Hour)
	second, _ := s.UpsertRating(ctx, &Rating{UserID: "u", ItemType: ItemMovie, ItemID: 1, Rating: 9})

	if second.Rating != 9 || !second.CreatedAt.Equal(first.CreatedAt) || !second.UpdatedAt.Equal(now) {
		t.Errorf("second = %+v", second)
	}
}
