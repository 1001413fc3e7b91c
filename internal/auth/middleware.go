// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dobbysense/internal/logging"
)

// Middleware authenticates requests with session tokens.
type Middleware struct {
	jwtManager  *JWTManager
	tokenCookie string
}

// NewMiddleware creates the authentication middleware. tokenCookie may be
// empty to accept header tokens only.
func NewMiddleware(jwtManager *JWTManager, tokenCookie string) *Middleware {
	return &Middleware{jwtManager: jwtManager, tokenCookie: tokenCookie}
}

// Authenticate rejects requests without a valid token and stores the
// Subject in the request context otherwise.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := m.extractToken(r)
		if err != nil {
			recordAttempt(err)
			writeUnauthorized(w, "Unauthorized: authentication required")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			recordAttempt(err)
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			writeUnauthorized(w, "Unauthorized: invalid token")
			return
		}
		recordAttempt(nil)

		subject := subjectFromClaims(claims)
		ctx := ContextWithSubject(r.Context(), subject)
		ctx = logging.ContextWithUserID(ctx, subject.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken prefers the Authorization header over the cookie.
func (m *Middleware) extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", ErrInvalidCredentials
		}
		return strings.TrimSpace(parts[1]), nil
	}

	if m.tokenCookie != "" {
		if cookie, err := r.Cookie(m.tokenCookie); err == nil && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", ErrNoCredentials
}

func recordAttempt(err error) {
	switch {
	case err == nil:
		AuthAttempts.WithLabelValues("success").Inc()
	case errors.Is(err, ErrNoCredentials):
		AuthAttempts.WithLabelValues("missing").Inc()
	case errors.Is(err, ErrExpiredCredentials):
		AuthAttempts.WithLabelValues("expired").Inc()
	default:
		AuthAttempts.WithLabelValues("invalid").Inc()
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="dobbysense"`)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode 401 response")
	}
}
