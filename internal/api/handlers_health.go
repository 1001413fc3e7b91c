// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/dobbysense/internal/models"
)

// Health reports liveness and the state of registered dependencies. It
// answers 200 while the process serves requests; a failing dependency
// downgrades status to "degraded", as does an open circuit breaker.
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := &models.HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if len(h.pingers) > 0 {
		resp.Checks = make(map[string]string, len(h.pingers))
		for name, p := range h.pingers {
			if err := p.Ping(r.Context()); err != nil {
				resp.Checks[name] = "error: " + err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	if len(h.breakers) > 0 {
		resp.Breakers = make(map[string]string, len(h.breakers))
		for name, b := range h.breakers {
			state := b.State()
			resp.Breakers[name] = state
			if state == "open" {
				resp.Status = "degraded"
			}
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
