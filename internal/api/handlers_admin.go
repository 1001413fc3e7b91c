// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/dobbysense/internal/audit"
	"github.com/tomtom215/dobbysense/internal/auth"
	"github.com/tomtom215/dobbysense/internal/models"
	"github.com/tomtom215/dobbysense/internal/sense"
)

const maxAuditLimit = 1000

// PublishGenreLayer appends a new genre layer. It sits behind the admin
// authorization check.
//
//	POST /admin/genre-layers {"name": ..., "genre_names": [...], "weight": [[...]], "bias": [...]}
//	201 {"model": {...}}
// @Summary Publish a genre layer
// @Tags Admin, Genre Layers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.GenreLayerRequest true "Layer definition"
// @Success 201 {object} models.GenreLayerResponse
// @Failure 400 {object} models.ErrorResponse "Malformed layer"
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/genre-layers [post]
func (h *Handler) PublishGenreLayer(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		respondError(w, http.StatusNotImplemented, "layer publishing is not enabled")
		return
	}

	var req models.GenreLayerRequest
	if err := decodeJSON(w, r, maxLayerBodyBytes, &req); err != nil {
		h.auditLayer(r, audit.OutcomeFailure, req.Name, err.Error(), nil)
		respondDomainError(w, r, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	stored, err := h.publisher.Publish(ctx, req.ToModel())
	if err != nil {
		if statusForError(err) == http.StatusInternalServerError {
			err = fmt.Errorf("%w: %w", sense.ErrPersistenceFailure, err)
		}
		h.auditLayer(r, audit.OutcomeFailure, req.Name, err.Error(), nil)
		respondDomainError(w, r, err)
		return
	}
	h.auditLayer(r, audit.OutcomeSuccess, stored.Name, "genre layer published", map[string]any{
		"layer_id": stored.ID,
		"factors":  stored.Factors(),
		"genres":   stored.Genres(),
	})
	respondJSON(w, http.StatusCreated, &models.GenreLayerResponse{Model: stored})
}

func (h *Handler) auditLayer(r *http.Request, outcome audit.Outcome, name, description string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	t := audit.TypeLayerPublished
	if outcome == audit.OutcomeFailure {
		t = audit.TypeLayerRejected
	}
	ev := audit.FromRequest(r, t)
	ev.Outcome = outcome
	ev.Resource = name
	ev.Description = description
	if s, ok := auth.SubjectFromContext(r.Context()); ok {
		ev.ActorID = s.ID
		ev.ActorRole = s.Role
	}
	if meta != nil {
		ev.WithMetadata(meta)
	}
	h.audit.Log(r.Context(), ev)
}

// AuditLog lists recent audit events, newest first.
//
//	GET /admin/audit?type=authz.denied,layer.published&actor=u1&since=2026-01-01T00:00:00Z&limit=50
//	200 {"events": [...]}
// @Summary Query the audit log
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param type query string false "Comma-separated event types"
// @Param actor query string false "Actor user ID"
// @Param since query string false "RFC 3339 lower bound"
// @Param limit query int false "Maximum events (1-1000)" default(100)
// @Success 200 {object} models.AuditResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 501 {object} models.ErrorResponse "Audit logging disabled"
// @Router /admin/audit [get]
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondError(w, http.StatusNotImplemented, "audit logging is not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.QueryFilter{ActorID: q.Get("actor"), Limit: audit.DefaultQueryLimit}
	if v := q.Get("type"); v != "" {
		for _, t := range strings.Split(v, ",") {
			filter.Types = append(filter.Types, audit.EventType(strings.TrimSpace(t)))
		}
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAuditLimit {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxAuditLimit))
			return
		}
		filter.Limit = n
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	events, err := h.audit.Query(ctx, filter)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	respondJSON(w, http.StatusOK, &models.AuditResponse{Events: events})
}
