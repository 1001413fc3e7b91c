// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/dobbysense/internal/logging"
	"github.com/tomtom215/dobbysense/internal/models"
	"github.com/tomtom215/dobbysense/internal/sense"
)

// RateMovie handles POST /movies/{id}/rate.
// @Summary Rate a movie
// @Tags Ratings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Movie ID"
// @Param request body models.RateRequest true "Rating from 1 to 10"
// @Success 200 {object} models.RateResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /movies/{id}/rate [post]
func (h *Handler) RateMovie(w http.ResponseWriter, r *http.Request) {
	h.rate(w, r, sense.ItemMovie)
}

// RateShow handles POST /shows/{id}/rate.
// @Summary Rate a show
// @Tags Ratings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Show ID"
// @Param request body models.RateRequest true "Rating from 1 to 10"
// @Success 200 {object} models.RateResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /shows/{id}/rate [post]
func (h *Handler) RateShow(w http.ResponseWriter, r *http.Request) {
	h.rate(w, r, sense.ItemShow)
}

// rate stores the caller's rating and then dispatches a RatingEvent. The
// response does not wait for, or depend on, the embedding update.
func (h *Handler) rate(w http.ResponseWriter, r *http.Request, itemType sense.ItemType) {
	userID := subjectID(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized: authentication required")
		return
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID <= 0 {
		respondDomainError(w, r, fmt.Errorf("%w: %s id must be a positive integer", sense.ErrInvalidRating, itemType))
		return
	}

	var req models.RateRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if h.ratings == nil {
		respondDomainError(w, r, fmt.Errorf("rating store not configured"))
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	row, err := h.ratings.UpsertRating(ctx, &sense.Rating{
		UserID:   userID,
		ItemType: itemType,
		ItemID:   itemID,
		Rating:   req.Rating,
	})
	if err != nil {
		respondDomainError(w, r, fmt.Errorf("%w: store rating: %w", sense.ErrPersistenceFailure, err))
		return
	}

	respondJSON(w, http.StatusOK, &models.RateResponse{Success: true, Rating: row})

	if h.dispatcher == nil {
		return
	}
	h.dispatcher.DispatchRating(r.Context(), &sense.RatingEvent{
		EventID:  uuid.NewString(),
		UserID:   row.UserID,
		ItemType: row.ItemType,
		ItemID:   row.ItemID,
		Rating:   row.Rating,
		RatedAt:  row.UpdatedAt,
	})
	logging.Ctx(r.Context()).Debug().
		Str("item_type", string(itemType)).
		Int64("item_id", itemID).
		Msg("Rating dispatched for embedding update")
}
