// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"context"
	"time"

	"github.com/tomtom215/dobbysense/internal/cache"
	"github.com/tomtom215/dobbysense/internal/metrics"
)

// ModelSource yields the latest genre layer.
type ModelSource interface {
	LatestModel(ctx context.Context) (*FactorModel, error)
}

// stampedModelStore is the subset of ModelStore the cache needs.
type stampedModelStore interface {
	ModelSource
	LatestModelStamp(ctx context.Context) (ModelStamp, error)
}

// ModelCache avoids reloading and decoding the weight matrix on every
// request. Each lookup still asks the store for the latest stamp, so a newly
// inserted layer is picked up by the very next request and the cache never
// serves a superseded snapshot.
//
// Returned models are shared between callers and must not be modified.
type ModelCache struct {
	store stampedModelStore
	cache *cache.Cache[*FactorModel]
}

// NewModelCache wraps store. Entries unused for ttl are dropped.
func NewModelCache(store stampedModelStore, ttl time.Duration) *ModelCache {
	return &ModelCache{
		store: store,
		cache: cache.New[*FactorModel](ttl, 4),
	}
}

// LatestModel implements ModelSource.
func (c *ModelCache) LatestModel(ctx context.Context) (*FactorModel, error) {
	stamp, err := c.store.LatestModelStamp(ctx)
	if err != nil {
		return nil, err
	}
	if m, ok := c.cache.Get(stamp.Key()); ok {
		metrics.RecordModelCache(true)
		return m, nil
	}
	metrics.RecordModelCache(false)

	m, err := c.store.LatestModel(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	// A newer layer may have landed between the two reads; key it by its
	// own stamp so the next lookup hits.
	c.cache.Set(m.Stamp().Key(), m)
	return m, nil
}

// Invalidate drops every cached layer.
func (c *ModelCache) Invalidate() {
	c.cache.Clear()
}
