// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/dobbysense/internal/config"
	"github.com/tomtom215/dobbysense/internal/sense"
)

func TestRouter_Routes(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/genre-layer", http.StatusOK},
		{http.MethodGet, "/genres", http.StatusOK},
		{http.MethodGet, "/swagger/index.html", http.StatusOK},
		{http.MethodPost, "/fold-in", http.StatusUnauthorized},
		{http.MethodGet, "/embedding", http.StatusUnauthorized},
		{http.MethodPost, "/admin/genre-layers", http.StatusUnauthorized},
		{http.MethodGet, "/fold-in", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()
			rec := srv.do(t, tt.method, tt.path, "", nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("X-Request-ID header missing")
			}
		})
	}
}

func TestRouter_MetricsExposeFoldIn(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)
	srv.do(t, http.MethodPost, "/fold-in", srv.token(t, "m", ""), map[string][]string{"selectedGenres": {"Drama"}})

	rec := srv.do(t, http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(rec.Body.String(), "dobbysense_foldin_total") {
		t.Error("/metrics does not expose dobbysense_foldin_total")
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()
	store := sense.NewMemoryStore()
	h := NewHandler(testConfig(), sense.NewService(store, store), store)
	chiMW := NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&config.SecurityConfig{
		RateLimitReqs:   2,
		RateLimitWindow: time.Minute,
	}))
	srv := &testServer{handler: NewRouter(h, nil, nil, chiMW).Setup()}

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := newJSONRequest(t, http.MethodGet, "/genres", "")
		req.RemoteAddr = "203.0.113.7:4000"
		codes = append(codes, serve(srv, req).Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429 (codes %v)", codes[2], codes)
	}
}

func TestChiMiddlewareConfigFromSecurity(t *testing.T) {
	t.Parallel()

	wild := ChiMiddlewareConfigFromSecurity(&config.SecurityConfig{CORSOrigins: []string{"*"}})
	if wild.CORSAllowCredentials {
		t.Error("credentials must not be allowed with wildcard origins")
	}
	explicit := ChiMiddlewareConfigFromSecurity(&config.SecurityConfig{CORSOrigins: []string{"https://app.example.com"}})
	if !explicit.CORSAllowCredentials {
		t.Error("credentials should be allowed with an explicit origin list")
	}
	if d := ChiMiddlewareConfigFromSecurity(nil); d.RateLimitRequests != 100 {
		t.Errorf("default RateLimitRequests = %d, want 100", d.RateLimitRequests)
	}
}
