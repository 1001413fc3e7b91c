// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

var errBackend = errors.New("backend down")

func testModel() *FactorModel {
	return &FactorModel{
		Name:        "test-layer",
		GenreLabels: []string{"Action", "Drama", "Horror"},
		Weight: [][]float64{
			{1, 0, 2},
			{0, 3, 1},
		},
		Bias: []float64{0.5, -0.5},
	}
}

func seededStore(t *testing.T, models ...*FactorModel) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	for _, m := range models {
		if _, err := s.InsertModel(context.Background(), m); err != nil {
			t.Fatalf("InsertModel: %v", err)
		}
	}
	return s
}

func assertVector(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("vector = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("vector = %v, want %v", got, want)
		}
	}
}

// failingEmbeddings fails every write.
type failingEmbeddings struct {
	*MemoryStore
}

func (f failingEmbeddings) UpsertEmbedding(context.Context, string, []float64) (*UserEmbedding, error) {
	return nil, errBackend
}

func (f failingEmbeddings) SwapEmbedding(context.Context, string, int64, []float64) (*UserEmbedding, error) {
	return nil, errBackend
}

// failingPrefs fails every preference write.
type failingPrefs struct{}

func (failingPrefs) ReplaceGenrePreferences(context.Context, string, []string) error {
	return errBackend
}

func (failingPrefs) GenrePreferences(context.Context, string) ([]string, error) {
	return nil, errBackend
}

type recordedUpdate struct {
	row    *UserEmbedding
	source string
}

type recordingListener struct {
	mu      sync.Mutex
	updates []recordedUpdate
}

func (l *recordingListener) EmbeddingUpdated(_ context.Context, e *UserEmbedding, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, recordedUpdate{row: e, source: source})
}

func (l *recordingListener) all() []recordedUpdate {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedUpdate(nil), l.updates...)
}

// staticModels returns a fixed model or error and ignores the context.
type staticModels struct {
	model *FactorModel
	err   error
}

func (s staticModels) LatestModel(context.Context) (*FactorModel, error) {
	return s.model, s.err
}
