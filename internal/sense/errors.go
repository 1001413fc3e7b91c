// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import "errors"

// Request-level failures. Every error returned by Service wraps exactly one
// of these so the API layer can map it to a status code with errors.Is.
var (
	// ErrInvalidPayload: selection missing, empty, or malformed.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrNoMatchingGenres: no selected label exists in the model vocabulary.
	ErrNoMatchingGenres = errors.New("no matching genres")

	// ErrModelUnavailable: no layer exists, the lookup failed, or the layer
	// is malformed.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrPersistenceFailure: the embedding could not be written.
	ErrPersistenceFailure = errors.New("persistence failure")
)

// Store-level conditions returned by Repository implementations.
var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by SwapEmbedding when the stored version
	// differs from the expected one.
	ErrConflict = errors.New("version conflict")

	// ErrInvalidModel wraps shape violations found by FactorModel.Validate.
	ErrInvalidModel = errors.New("invalid factor model")

	// ErrInvalidRating wraps RatingEvent and Rating validation failures.
	ErrInvalidRating = errors.New("invalid rating")
)
