// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dobbysense/internal/logging"
	"github.com/tomtom215/dobbysense/internal/models"
	"github.com/tomtom215/dobbysense/internal/sense"
)

// respondJSON writes v with the given status. Responses are per-user and
// never cached.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError writes {"error": message}.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &models.ErrorResponse{Error: message})
}

// respondDomainError maps err to a status code. Client errors echo the
// error text; server errors send only the category and log the detail.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status < http.StatusInternalServerError {
		respondError(w, status, err.Error())
		return
	}

	logging.Ctx(r.Context()).Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Request failed")
	respondError(w, status, serverErrorMessage(err))
}

// statusForError is the single error to status mapping of the API.
// Server-side categories are checked first: ErrModelUnavailable may wrap
// ErrInvalidModel when the stored layer is malformed.
func statusForError(err error) int {
	switch {
	case errors.Is(err, sense.ErrModelUnavailable),
		errors.Is(err, sense.ErrPersistenceFailure):
		return http.StatusInternalServerError
	case errors.Is(err, sense.ErrInvalidPayload),
		errors.Is(err, sense.ErrNoMatchingGenres),
		errors.Is(err, sense.ErrInvalidModel),
		errors.Is(err, sense.ErrInvalidRating):
		return http.StatusBadRequest
	case errors.Is(err, sense.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sense.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func serverErrorMessage(err error) string {
	switch {
	case errors.Is(err, sense.ErrModelUnavailable):
		return sense.ErrModelUnavailable.Error()
	case errors.Is(err, sense.ErrPersistenceFailure):
		return sense.ErrPersistenceFailure.Error()
	default:
		return "internal server error"
	}
}
