// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package api

import (
	"fmt"
	"net/http"

	"github.com/tomtom215/dobbysense/internal/models"
	"github.com/tomtom215/dobbysense/internal/sense"
)

// FoldIn computes and stores the caller's cold-start embedding from the
// genres they selected.
//
//	POST /fold-in {"selectedGenres": ["Action", "Horror"]}
//	200 {"ok": true, "embedding": [...], "db": {...}}
// @Summary Fold in a genre selection
// @Description Averages the selected genre columns of the latest layer, adds the bias and stores the result as the caller's embedding
// @Tags Embeddings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.FoldInRequest true "Selected genres"
// @Success 200 {object} models.FoldInResponse
// @Failure 400 {object} models.ErrorResponse "Invalid payload or no matching genres"
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse "No genre layer or persistence failure"
// @Router /fold-in [post]
func (h *Handler) FoldIn(w http.ResponseWriter, r *http.Request) {
	userID := subjectID(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized: authentication required")
		return
	}

	var req models.FoldInRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if limit := h.maxGenres(); limit > 0 && len(req.SelectedGenres) > limit {
		respondDomainError(w, r, fmt.Errorf("%w: at most %d genres may be selected", sense.ErrInvalidPayload, limit))
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.service.FoldIn(ctx, userID, req.SelectedGenres)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.FoldInResponse{
		OK:        true,
		Embedding: res.Embedding,
		DB:        res.Row,
	})
}

// GenreLayer returns the latest genre layer, or 404 when none exists.
// @Summary Get the latest genre layer
// @Tags Genre Layers
// @Produce json
// @Success 200 {object} models.GenreLayerResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /genre-layer [get]
func (h *Handler) GenreLayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	m, err := h.service.LatestLayer(ctx)
	if err != nil {
		if statusForError(err) == http.StatusNotFound {
			respondError(w, http.StatusNotFound, "no genre layer found")
			return
		}
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &models.GenreLayerResponse{Model: m})
}

// Genres lists the genre catalog and which entries the latest layer covers.
// @Summary List the genre catalog
// @Tags Genre Layers
// @Produce json
// @Success 200 {object} models.GenresResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /genres [get]
func (h *Handler) Genres(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	catalog, err := h.service.Catalog(ctx)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &models.GenresResponse{Genres: catalog})
}

// Embedding returns the caller's stored embedding row.
// @Summary Get the caller's embedding
// @Tags Embeddings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.EmbeddingResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /embedding [get]
func (h *Handler) Embedding(w http.ResponseWriter, r *http.Request) {
	userID := subjectID(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized: authentication required")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	row, err := h.service.Embedding(ctx, userID)
	if err != nil {
		if statusForError(err) == http.StatusNotFound {
			respondError(w, http.StatusNotFound, "no embedding stored for this user")
			return
		}
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &models.EmbeddingResponse{Embedding: row})
}

func (h *Handler) maxGenres() int {
	if h.config == nil {
		return 0
	}
	return h.config.Sense.MaxGenres
}
