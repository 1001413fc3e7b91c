// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/dobbysense/internal/cache"
	"github.com/tomtom215/dobbysense/internal/metrics"
)

var _ middleware.ExpiringKeyRepository = (*Deduplicator)(nil)

// Deduplicator remembers message UUIDs for a TTL window.
type Deduplicator struct {
	seen *cache.Cache[struct{}]
}

// NewDeduplicator tracks up to 10000 recent keys.
func NewDeduplicator(ttl time.Duration) *Deduplicator {
	return &Deduplicator{seen: cache.New[struct{}](ttl, 10000)}
}

// IsDuplicate implements middleware.ExpiringKeyRepository.
func (d *Deduplicator) IsDuplicate(_ context.Context, key string) (bool, error) {
	dup := d.seen.SeenOrAdd(key, struct{}{})
	if dup {
		metrics.EventsDuplicate.Inc()
	}
	return dup, nil
}
