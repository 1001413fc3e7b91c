// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"context"
	"fmt"

	"github.com/tomtom215/dobbysense/internal/logging"
)

// LayerPublisher appends validated genre layers. Layers are never updated
// in place; a new snapshot supersedes the previous one by creation time.
type LayerPublisher struct {
	store ModelStore
	cache *ModelCache
}

// NewLayerPublisher writes to store and, when cache is non-nil, drops it
// after every insert.
func NewLayerPublisher(store ModelStore, cache *ModelCache) *LayerPublisher {
	return &LayerPublisher{store: store, cache: cache}
}

// Publish validates m and appends it. Invalid layers wrap ErrInvalidModel
// and are never written.
func (p *LayerPublisher) Publish(ctx context.Context, m *FactorModel) (*FactorModel, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	stored, err := p.store.InsertModel(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("insert genre layer: %w", err)
	}
	if p.cache != nil {
		p.cache.Invalidate()
	}

	logging.Ctx(ctx).Info().
		Str("layer", stored.Name).
		Int64("layer_id", stored.ID).
		Int("factors", stored.Factors()).
		Int("genres", stored.Genres()).
		Msg("Genre layer published")
	return stored, nil
}
