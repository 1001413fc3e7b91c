// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dobbysense/internal/audit"
	"github.com/tomtom215/dobbysense/internal/auth"
	"github.com/tomtom215/dobbysense/internal/config"
	"github.com/tomtom215/dobbysense/internal/sense"
	"github.com/tomtom215/dobbysense/internal/validation"
)

// Request body limits.
const (
	maxBodyBytes      = 1 << 20
	maxLayerBodyBytes = 16 << 20
)

// RatingDispatcher hands stored ratings to the incremental updater.
// Dispatch must not block the response.
type RatingDispatcher interface {
	DispatchRating(ctx context.Context, ev *sense.RatingEvent)
}

// Pinger is a dependency checked by GET /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Breaker is a circuit breaker whose state GET /health reports.
type Breaker interface {
	State() string
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_foldin.go: fold-in, genre layer, catalog, own embedding
//   - handlers_rating.go: rating endpoints
//   - handlers_admin.go: layer publishing, audit log
//   - handlers_health.go: health
type Handler struct {
	service    *sense.Service
	ratings    sense.RatingStore
	publisher  *sense.LayerPublisher
	dispatcher RatingDispatcher
	audit      *audit.Logger
	pingers    map[string]Pinger
	breakers   map[string]Breaker
	config     *config.Config
	version    string
	startTime  time.Time
}

// NewHandler creates a handler for service. ratings may be nil, in which
// case the rating endpoints answer 500.
func NewHandler(cfg *config.Config, service *sense.Service, ratings sense.RatingStore) *Handler {
	return &Handler{
		service:   service,
		ratings:   ratings,
		config:    cfg,
		pingers:   make(map[string]Pinger),
		breakers:  make(map[string]Breaker),
		startTime: time.Now(),
	}
}

// SetPublisher enables POST /admin/genre-layers.
func (h *Handler) SetPublisher(p *sense.LayerPublisher) { h.publisher = p }

// SetDispatcher wires rating dispatch. Without one, ratings are stored but
// no incremental update is triggered.
func (h *Handler) SetDispatcher(d RatingDispatcher) { h.dispatcher = d }

// SetAuditLogger records layer publications and enables GET /admin/audit.
func (h *Handler) SetAuditLogger(l *audit.Logger) { h.audit = l }

// AddHealthCheck registers a dependency reported by GET /health.
func (h *Handler) AddHealthCheck(name string, p Pinger) { h.pingers[name] = p }

// AddBreaker registers a circuit breaker reported by GET /health.
func (h *Handler) AddBreaker(name string, b Breaker) { h.breakers[name] = b }

// SetVersion sets the version reported by GET /health.
func (h *Handler) SetVersion(v string) { h.version = v }

// subjectID returns the authenticated user, or "" when the route was not
// behind auth.Middleware.
func subjectID(r *http.Request) string {
	if s, ok := auth.SubjectFromContext(r.Context()); ok {
		return s.ID
	}
	return ""
}

// decodeJSON reads a bounded JSON body into dst and validates it. Every
// failure wraps sense.ErrInvalidPayload.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", sense.ErrInvalidPayload, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: request body is required", sense.ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: malformed JSON: %w", sense.ErrInvalidPayload, err)
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		return fmt.Errorf("%w: %w", sense.ErrInvalidPayload, verr)
	}
	return nil
}

// requestContext bounds handler work by SenseConfig.RequestTimeout.
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.config != nil && h.config.Sense.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), h.config.Sense.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}
