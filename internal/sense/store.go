// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"context"
	"time"
)

// ModelStore reads and appends genre layer snapshots.
type ModelStore interface {
	// LatestModel returns the most recently created layer, or ErrNotFound.
	LatestModel(ctx context.Context) (*FactorModel, error)

	// LatestModelStamp identifies the most recent layer without loading the
	// matrix, or returns ErrNotFound.
	LatestModelStamp(ctx context.Context) (ModelStamp, error)

	// InsertModel appends a layer and returns it with ID and CreatedAt set.
	InsertModel(ctx context.Context, m *FactorModel) (*FactorModel, error)
}

// EmbeddingStore holds one embedding per user.
type EmbeddingStore interface {
	// GetEmbedding returns the stored row, or ErrNotFound.
	GetEmbedding(ctx context.Context, userID string) (*UserEmbedding, error)

	// UpsertEmbedding writes vec unconditionally and returns the stored row.
	UpsertEmbedding(ctx context.Context, userID string, vec []float64) (*UserEmbedding, error)

	// SwapEmbedding writes vec only when the stored version equals expected.
	// expected == 0 means "only if no row exists". A mismatch returns
	// ErrConflict and leaves the row untouched.
	SwapEmbedding(ctx context.Context, userID string, expected int64, vec []float64) (*UserEmbedding, error)
}

// ItemStore holds per-item vectors and genres.
type ItemStore interface {
	// ItemSignal returns the item's vector and genres, or ErrNotFound.
	ItemSignal(ctx context.Context, itemType ItemType, itemID int64) (*ItemSignal, error)

	UpsertItemSignal(ctx context.Context, item *ItemSignal) error
}

// PreferenceStore keeps the user's declared favourite genres.
type PreferenceStore interface {
	// ReplaceGenrePreferences swaps the user's whole preference set.
	ReplaceGenrePreferences(ctx context.Context, userID string, genres []string) error

	GenrePreferences(ctx context.Context, userID string) ([]string, error)
}

// RatingStore records user ratings.
type RatingStore interface {
	// UpsertRating inserts or updates the (user, item) rating and returns
	// the stored row.
	UpsertRating(ctx context.Context, r *Rating) (*Rating, error)
}

// Repository is everything DobbySense persists.
type Repository interface {
	ModelStore
	EmbeddingStore
	ItemStore
	PreferenceStore
	RatingStore
}

// Rating is one user's score for one item, on the 1-10 scale.
type Rating struct {
	UserID    string    `json:"user_id"`
	ItemType  ItemType  `json:"item_type"`
	ItemID    int64     `json:"item_id"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
