// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tomtom215/dobbysense/internal/logging"
	"github.com/tomtom215/dobbysense/internal/metrics"
)

// ItemSource is the read side of ItemStore.
type ItemSource interface {
	ItemSignal(ctx context.Context, itemType ItemType, itemID int64) (*ItemSignal, error)
}

var _ ItemSource = (*BreakerItemSource)(nil)

// BreakerSettings tunes BreakerItemSource.
type BreakerSettings struct {
	Name         string
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

// DefaultBreakerSettings opens after 60% failures over at least 10 lookups
// and lets a trial request through after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "item-signal",
		MinRequests:  10,
		FailureRatio: 0.6,
		OpenTimeout:  30 * time.Second,
	}
}

// BreakerItemSource guards item lookups so a failing store does not stall
// every rating event behind its timeout.
type BreakerItemSource struct {
	src  ItemSource
	cb   *gobreaker.CircuitBreaker[*ItemSignal]
	name string
}

// NewBreakerItemSource wraps src. ErrNotFound and caller cancellation do
// not count as failures.
func NewBreakerItemSource(src ItemSource, s BreakerSettings) *BreakerItemSource {
	def := DefaultBreakerSettings()
	if s.Name == "" {
		s.Name = def.Name
	}
	if s.MinRequests == 0 {
		s.MinRequests = def.MinRequests
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = def.FailureRatio
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = def.OpenTimeout
	}

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*ItemSignal](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
	})

	return &BreakerItemSource{src: src, cb: cb, name: s.Name}
}

// ItemSignal implements ItemSource.
func (b *BreakerItemSource) ItemSignal(ctx context.Context, itemType ItemType, itemID int64) (*ItemSignal, error) {
	item, err := b.cb.Execute(func() (*ItemSignal, error) {
		return b.src.ItemSignal(ctx, itemType, itemID)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return item, err
}

// State reports the breaker state (closed, half-open or open) for GET /health.
func (b *BreakerItemSource) State() string {
	return b.cb.State().String()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
