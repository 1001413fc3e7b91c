// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package authz

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dobbysense/internal/audit"
	"github.com/tomtom215/dobbysense/internal/auth"
	"github.com/tomtom215/dobbysense/internal/logging"
)

// Middleware enforces path-based authorization. It must run after
// auth.Middleware.Authenticate.
type Middleware struct {
	enforcer *Enforcer
	audit    *audit.Logger
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// SetAuditLogger records every denial with l.
func (m *Middleware) SetAuditLogger(l *audit.Logger) { m.audit = l }

// AuthorizeRequest derives the action from the HTTP method and uses the
// request path as the object.
func (m *Middleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := auth.SubjectFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusForbidden, "Forbidden: no authentication context")
			return
		}

		allowed, err := m.enforcer.EnforceRole(subject.ID, subject.Role, r.URL.Path, methodToAction(r.Method))
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !allowed {
			logging.Ctx(r.Context()).Warn().
				Str("path", r.URL.Path).
				Str("role", subject.Role).
				Msg("Authorization denied")
			if m.audit != nil {
				ev := audit.FromRequest(r, audit.TypeAuthzDenied)
				ev.Outcome = audit.OutcomeFailure
				ev.ActorID = subject.ID
				ev.ActorRole = subject.Role
				ev.Resource = r.URL.Path
				m.audit.Log(r.Context(), ev)
			}
			writeError(w, http.StatusForbidden, "Forbidden: insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// methodToAction maps HTTP methods to Casbin actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "write"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode authorization error")
	}
}
