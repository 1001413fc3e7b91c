// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package models

import (
	"github.com/tomtom215/dobbysense/internal/audit"
	"github.com/tomtom215/dobbysense/internal/sense"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FoldInResponse is the POST /fold-in success body. Embedding is the
// computed vector; DB is the row as persisted.
type FoldInResponse struct {
	OK        bool                 `json:"ok"`
	Embedding []float64            `json:"embedding"`
	DB        *sense.UserEmbedding `json:"db"`
}

// GenreLayerResponse wraps the latest (or newly published) layer.
type GenreLayerResponse struct {
	Model *sense.FactorModel `json:"model"`
}

// RateResponse is the rating endpoints' success body.
type RateResponse struct {
	Success bool          `json:"success"`
	Rating  *sense.Rating `json:"rating"`
}

// GenresResponse lists the catalog against the latest layer.
type GenresResponse struct {
	Genres []sense.GenreAvailability `json:"genres"`
}

// EmbeddingResponse is the caller's stored embedding row.
type EmbeddingResponse struct {
	Embedding *sense.UserEmbedding `json:"embedding"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks,omitempty"`
	Breakers      map[string]string `json:"breakers,omitempty"`
	Version       string            `json:"version,omitempty"`
	UptimeSeconds float64           `json:"uptime_seconds"`
}

// AuditResponse is the GET /admin/audit body, newest event first.
type AuditResponse struct {
	Events []audit.Event `json:"events"`
}
