// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FactorModel is one snapshot of the genre layer. Weight is F x G: row i is
// latent factor i, column j is GenreLabels[j]. Bias, when its length is F,
// is added after averaging; any other length is ignored.
//
// The JSON form matches the genre_layers wire shape.
type FactorModel struct {
	ID          int64       `json:"-"`
	Name        string      `json:"name" validate:"required,max=200"`
	GenreLabels []string    `json:"genre_names" validate:"required,min=1,dive,required"`
	Weight      [][]float64 `json:"weight" validate:"required,min=1"`
	Bias        []float64   `json:"bias"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Factors returns F.
func (m *FactorModel) Factors() int { return len(m.Weight) }

// Genres returns G.
func (m *FactorModel) Genres() int { return len(m.GenreLabels) }

// HasBias reports whether Bias applies to this model.
func (m *FactorModel) HasBias() bool {
	return len(m.Bias) > 0 && len(m.Bias) == len(m.Weight)
}

// Validate checks the matrix shape. A model whose rows disagree with the
// label count is rejected rather than truncated.
func (m *FactorModel) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil model", ErrInvalidModel)
	}
	g := len(m.GenreLabels)
	if g == 0 {
		return fmt.Errorf("%w: no genre labels", ErrInvalidModel)
	}
	if len(m.Weight) == 0 {
		return fmt.Errorf("%w: weight matrix has no factors", ErrInvalidModel)
	}
	for i, row := range m.Weight {
		if len(row) != g {
			return fmt.Errorf("%w: weight row %d has %d columns, want %d", ErrInvalidModel, i, len(row), g)
		}
	}
	return nil
}

// Stamp identifies this snapshot cheaply.
func (m *FactorModel) Stamp() ModelStamp {
	return ModelStamp{ID: m.ID, CreatedAt: m.CreatedAt}
}

// ModelStamp identifies a layer snapshot without its matrix. Two stamps are
// equal only when they refer to the same row.
type ModelStamp struct {
	ID        int64
	CreatedAt time.Time
}

// Key is a stable cache key for the stamp.
func (s ModelStamp) Key() string {
	return "layer:" + strconv.FormatInt(s.ID, 10) + ":" + strconv.FormatInt(s.CreatedAt.UnixNano(), 10)
}

// UserEmbedding is the stored taste vector for one user. Version increases
// on every write and backs SwapEmbedding.
type UserEmbedding struct {
	UserID    string    `json:"user_id"`
	Embedding []float64 `json:"embedding"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemType distinguishes the two catalogs that carry item vectors.
type ItemType string

const (
	ItemMovie ItemType = "movie"
	ItemShow  ItemType = "show"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemMovie || t == ItemShow
}

// ItemSignal is what the updater knows about a rated item: its vector in
// the latent space and its genre labels.
type ItemSignal struct {
	ItemType  ItemType  `json:"item_type"`
	ItemID    int64     `json:"item_id"`
	Embedding []float64 `json:"embedding"`
	Genres    []string  `json:"genres,omitempty"`
}

// SanitizeVector replaces NaN and ±Inf entries with 0 in place and returns v.
func SanitizeVector(v []float64) []float64 {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v[i] = 0
		}
	}
	return v
}
