// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tomtom215/dobbysense/internal/logging"
	"github.com/tomtom215/dobbysense/internal/metrics"
)

// ErrDimensionMismatch is returned by UpdateStrategy.Blend when the user and
// item vectors differ in length.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// UpdateStrategy decides whether and how a rated item moves a user's
// embedding. Implementations must not modify their arguments.
type UpdateStrategy interface {
	Name() string
	Accepts(score float64) bool
	Blend(current, item []float64) ([]float64, error)
}

// EMAStrategy moves the embedding a fixed fraction toward liked items:
// next = current + Alpha*(item-current).
type EMAStrategy struct {
	Alpha         float64
	LikeThreshold float64
}

// DefaultEMAStrategy is alpha 0.05 with a like threshold of 6/10.
func DefaultEMAStrategy() EMAStrategy {
	return EMAStrategy{Alpha: 0.05, LikeThreshold: 6.0}
}

func (s EMAStrategy) Name() string { return "ema" }

func (s EMAStrategy) Accepts(score float64) bool { return score >= s.LikeThreshold }

func (s EMAStrategy) Blend(current, item []float64) ([]float64, error) {
	if len(current) != len(item) {
		return nil, fmt.Errorf("%w: user %d, item %d", ErrDimensionMismatch, len(current), len(item))
	}
	next := make([]float64, len(current))
	for i := range current {
		next[i] = current[i] + s.Alpha*(item[i]-current[i])
	}
	return SanitizeVector(next), nil
}

// SeedPolicy chooses the starting embedding for a user who rates before
// completing onboarding.
type SeedPolicy string

const (
	// SeedGenres folds in the item's genres, falling back to the item vector.
	SeedGenres SeedPolicy = "genres"
	// SeedItem copies the item vector.
	SeedItem SeedPolicy = "item"
	// SeedNone leaves the user without an embedding.
	SeedNone SeedPolicy = "none"
)

// Outcome is what Apply did with one event.
type Outcome string

const (
	OutcomeUpdated           Outcome = "updated"
	OutcomeSeeded            Outcome = "seeded"
	OutcomeBelowThreshold    Outcome = "below_threshold"
	OutcomeNoItemSignal      Outcome = "no_item_signal"
	OutcomeDimensionMismatch Outcome = "dimension_mismatch"
	OutcomeNoSeed            Outcome = "no_seed"
	OutcomeConflict          Outcome = "conflict"
	OutcomeError             Outcome = "error"
)

// Updater applies rating events to stored embeddings.
type Updater struct {
	strategy   UpdateStrategy
	embeddings EmbeddingStore
	items      ItemSource
	models     ModelSource
	resolver   *LabelResolver
	listener   EmbeddingListener
	seed       SeedPolicy
	timeout    time.Duration
	logger     zerolog.Logger
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithStrategy replaces the default EMA strategy.
func WithStrategy(s UpdateStrategy) UpdaterOption {
	return func(u *Updater) { u.strategy = s }
}

// WithSeedPolicy sets the policy for users without an embedding. Unknown
// values fall back to SeedGenres.
func WithSeedPolicy(p SeedPolicy) UpdaterOption {
	return func(u *Updater) {
		switch p {
		case SeedGenres, SeedItem, SeedNone:
			u.seed = p
		}
	}
}

// WithUpdateListener publishes persisted embeddings.
func WithUpdateListener(l EmbeddingListener) UpdaterOption {
	return func(u *Updater) { u.listener = l }
}

// WithUpdateTimeout bounds one Apply call. Default 10s.
func WithUpdateTimeout(d time.Duration) UpdaterOption {
	return func(u *Updater) {
		if d > 0 {
			u.timeout = d
		}
	}
}

// WithLabelResolver overrides the alias table used for genre seeding.
func WithLabelResolver(r *LabelResolver) UpdaterOption {
	return func(u *Updater) { u.resolver = r }
}

// NewUpdater returns an Updater. models is only consulted for SeedGenres and
// may be nil otherwise.
func NewUpdater(embeddings EmbeddingStore, items ItemSource, models ModelSource, opts ...UpdaterOption) *Updater {
	u := &Updater{
		strategy:   DefaultEMAStrategy(),
		embeddings: embeddings,
		items:      items,
		models:     models,
		resolver:   DefaultLabelResolver(),
		seed:       SeedGenres,
		timeout:    10 * time.Second,
		logger:     logging.WithComponent("updater"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Apply folds one rating into the user's embedding. A non-nil error is
// returned only with OutcomeError; every other outcome is a normal skip or
// success. Concurrent writers are detected with SwapEmbedding and reported
// as OutcomeConflict without retrying.
func (u *Updater) Apply(ctx context.Context, ev *RatingEvent) (Outcome, error) {
	start := time.Now()
	outcome, err := u.apply(ctx, ev)
	metrics.RecordUpdate(string(outcome), time.Since(start))

	log := u.logger.With().
		Str("user_id", ev.UserID).
		Str("item_type", string(ev.ItemType)).
		Int64("item_id", ev.ItemID).
		Str("outcome", string(outcome)).
		Logger()
	switch outcome {
	case OutcomeError:
		log.Error().Err(err).Msg("Embedding update failed")
	case OutcomeConflict, OutcomeDimensionMismatch:
		log.Warn().Msg("Embedding update skipped")
	default:
		log.Debug().Str("strategy", u.strategy.Name()).Msg("Rating applied")
	}
	return outcome, err
}

func (u *Updater) apply(ctx context.Context, ev *RatingEvent) (Outcome, error) {
	if err := ev.Validate(); err != nil {
		return OutcomeError, err
	}
	if !u.strategy.Accepts(ev.Score()) {
		return OutcomeBelowThreshold, nil
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	item, err := u.items.ItemSignal(ctx, ev.ItemType, ev.ItemID)
	if errors.Is(err, ErrNotFound) {
		return OutcomeNoItemSignal, nil
	}
	if err != nil {
		return OutcomeError, fmt.Errorf("load item signal: %w", err)
	}

	current, err := u.embeddings.GetEmbedding(ctx, ev.UserID)
	if errors.Is(err, ErrNotFound) {
		return u.seedEmbedding(ctx, ev.UserID, item)
	}
	if err != nil {
		return OutcomeError, fmt.Errorf("load embedding: %w", err)
	}

	if len(item.Embedding) == 0 {
		return OutcomeNoItemSignal, nil
	}
	next, err := u.strategy.Blend(current.Embedding, item.Embedding)
	if errors.Is(err, ErrDimensionMismatch) {
		return OutcomeDimensionMismatch, nil
	}
	if err != nil {
		return OutcomeError, fmt.Errorf("blend: %w", err)
	}

	return u.swap(ctx, ev.UserID, current.Version, next, SourceRating, OutcomeUpdated)
}

func (u *Updater) seedEmbedding(ctx context.Context, userID string, item *ItemSignal) (Outcome, error) {
	var vec []float64
	switch u.seed {
	case SeedNone:
		return OutcomeNoSeed, nil
	case SeedGenres:
		v, err := u.foldInItemGenres(ctx, item)
		if err != nil {
			return OutcomeError, err
		}
		vec = v
	}
	if vec == nil && len(item.Embedding) > 0 {
		vec = SanitizeVector(append([]float64(nil), item.Embedding...))
	}
	if vec == nil {
		return OutcomeNoSeed, nil
	}
	return u.swap(ctx, userID, 0, vec, SourceSeed, OutcomeSeeded)
}

// foldInItemGenres returns nil when there is no layer or none of the item's
// genres is in it.
func (u *Updater) foldInItemGenres(ctx context.Context, item *ItemSignal) ([]float64, error) {
	if u.models == nil || len(item.Genres) == 0 {
		return nil, nil
	}
	m, err := u.models.LatestModel(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load genre layer: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	idxs, _ := u.resolver.Resolve(m, item.Genres)
	if len(idxs) == 0 {
		return nil, nil
	}
	return FoldIn(m, idxs)
}

func (u *Updater) swap(ctx context.Context, userID string, expected int64, vec []float64, source string, ok Outcome) (Outcome, error) {
	row, err := u.embeddings.SwapEmbedding(ctx, userID, expected, vec)
	if errors.Is(err, ErrConflict) {
		return OutcomeConflict, nil
	}
	if err != nil {
		return OutcomeError, fmt.Errorf("store embedding: %w", err)
	}
	if u.listener != nil {
		u.listener.EmbeddingUpdated(ctx, row, source)
	}
	return ok, nil
}
