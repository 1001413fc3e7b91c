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

// Embedding sources reported to listeners.
const (
	SourceFoldIn = "fold_in"
	SourceRating = "rating"
	SourceSeed   = "seed"
)

// EmbeddingListener is told about every persisted embedding. Implementations
// must not block; the event bus publishes asynchronously.
type EmbeddingListener interface {
	EmbeddingUpdated(ctx context.Context, e *UserEmbedding, source string)
}

// FoldInResult is a successful fold-in.
type FoldInResult struct {
	Embedding []float64
	Row       *UserEmbedding
	ModelName string
	Matched   []string
	Dropped   []string
}

// Service runs fold-in requests against a model source and an embedding
// store.
type Service struct {
	models         ModelSource
	embeddings     EmbeddingStore
	prefs          PreferenceStore
	listener       EmbeddingListener
	resolver       *LabelResolver
	persistTimeout time.Duration
	logger         zerolog.Logger
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

// WithPreferences records the folded-in genres as the user's preferences.
func WithPreferences(p PreferenceStore) ServiceOption {
	return func(s *Service) { s.prefs = p }
}

// WithListener publishes persisted embeddings.
func WithListener(l EmbeddingListener) ServiceOption {
	return func(s *Service) { s.listener = l }
}

// WithResolver overrides the default genre alias table.
func WithResolver(r *LabelResolver) ServiceOption {
	return func(s *Service) { s.resolver = r }
}

// WithPersistTimeout bounds the detached upsert. Default 5s.
func WithPersistTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// NewService returns a fold-in service. models is usually a ModelCache or
// the repository itself.
func NewService(models ModelSource, embeddings EmbeddingStore, opts ...ServiceOption) *Service {
	s := &Service{
		models:         models,
		embeddings:     embeddings,
		resolver:       DefaultLabelResolver(),
		persistTimeout: 5 * time.Second,
		logger:         logging.WithComponent("foldin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the label resolver in use.
func (s *Service) Resolver() *LabelResolver { return s.resolver }

// FoldIn computes an embedding for userID from the selected genre labels
// and stores it, replacing any previous embedding.
//
// Errors wrap ErrInvalidPayload, ErrModelUnavailable, ErrNoMatchingGenres or
// ErrPersistenceFailure. Nothing is written unless the result is returned.
func (s *Service) FoldIn(ctx context.Context, userID string, labels []string) (*FoldInResult, error) {
	start := time.Now()
	res, err := s.foldIn(ctx, userID, labels)

	dropped := 0
	if res != nil {
		dropped = len(res.Dropped)
	}
	metrics.RecordFoldIn(foldInOutcome(err), dropped, time.Since(start))
	return res, err
}

func (s *Service) foldIn(ctx context.Context, userID string, labels []string) (*FoldInResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidPayload)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: selectedGenres must be a non-empty array of genre names or model keys", ErrInvalidPayload)
	}

	log := logging.Ctx(ctx).With().Str("component", "foldin").Logger()

	model, err := s.models.LatestModel(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no genre layer has been published", ErrModelUnavailable)
		}
		return nil, fmt.Errorf("%w: load latest genre layer: %w", ErrModelUnavailable, err)
	}
	if err := model.Validate(); err != nil {
		log.Error().Err(err).Str("model", model.Name).Msg("Latest genre layer is malformed")
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	idxs, dropped := s.resolver.Resolve(model, labels)
	for _, l := range dropped {
		log.Warn().Str("label", l).Str("model", model.Name).Msg("Genre label not in model vocabulary, dropped")
	}
	if len(idxs) == 0 {
		return &FoldInResult{ModelName: model.Name, Dropped: dropped},
			fmt.Errorf("%w: none of %d selected genres exist in layer %q", ErrNoMatchingGenres, len(labels), model.Name)
	}

	vec, err := FoldIn(model, idxs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	matched := make([]string, 0, len(idxs))
	for _, j := range idxs {
		matched = append(matched, model.GenreLabels[j])
	}

	// The write is allowed to land after the caller disconnects.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	row, err := s.embeddings.UpsertEmbedding(pctx, userID, vec)
	if err != nil {
		return nil, fmt.Errorf("%w: upsert embedding: %w", ErrPersistenceFailure, err)
	}

	log.Info().
		Str("model", model.Name).
		Int("factors", len(vec)).
		Int("matched", len(idxs)).
		Int("dropped", len(dropped)).
		Int64("version", row.Version).
		Msg("Embedding folded in")

	s.recordPreferences(pctx, log, userID, matched)
	if s.listener != nil {
		s.listener.EmbeddingUpdated(pctx, row, SourceFoldIn)
	}

	return &FoldInResult{
		Embedding: vec,
		Row:       row,
		ModelName: model.Name,
		Matched:   matched,
		Dropped:   dropped,
	}, nil
}

// recordPreferences replaces the user's favourite genres with the display
// names of the matched labels. Failures are logged only.
//
//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func (s *Service) recordPreferences(ctx context.Context, log zerolog.Logger, userID string, matched []string) {
	if s.prefs == nil {
		return
	}
	seen := make(map[string]struct{}, len(matched))
	names := make([]string, 0, len(matched))
	for _, l := range matched {
		name, _ := s.resolver.DisplayName(l)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if err := s.prefs.ReplaceGenrePreferences(ctx, userID, names); err != nil {
		log.Error().Err(err).Msg("Failed to update genre preferences")
	}
}

// LatestLayer returns the newest genre layer. ErrNotFound means none has
// been published; other errors wrap ErrModelUnavailable.
func (s *Service) LatestLayer(ctx context.Context) (*FactorModel, error) {
	m, err := s.models.LatestModel(ctx)
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, ErrNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
}

// Embedding returns the stored embedding for userID, or ErrNotFound.
func (s *Service) Embedding(ctx context.Context, userID string) (*UserEmbedding, error) {
	return s.embeddings.GetEmbedding(ctx, userID)
}

// Catalog lists known genres and whether the latest layer covers them. A
// missing layer yields a catalog with nothing available.
func (s *Service) Catalog(ctx context.Context) ([]GenreAvailability, error) {
	m, err := s.LatestLayer(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.resolver.Catalog(m), nil
}

func foldInOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, ErrNoMatchingGenres):
		return "no_matching_genres"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, ErrPersistenceFailure):
		return "persistence_failure"
	default:
		return "error"
	}
}
