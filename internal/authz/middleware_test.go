// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/dobbysense/internal/audit"
	"github.com/tomtom215/dobbysense/internal/auth"
)

func TestMiddleware_AuthorizeRequest(t *testing.T) {
	t.Parallel()
	mw := NewMiddleware(newTestEnforcer(t))
	handler := mw.AuthorizeRequest(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	tests := []struct {
		name    string
		subject *auth.Subject
		method  string
		want    int
	}{
		{"no subject", nil, http.MethodPost, http.StatusForbidden},
		{"member", &auth.Subject{ID: "u1", Role: RoleMember}, http.MethodPost, http.StatusForbidden},
		{"no role", &auth.Subject{ID: "u1"}, http.MethodPost, http.StatusForbidden},
		{"admin", &auth.Subject{ID: "u2", Role: RoleAdmin}, http.MethodPost, http.StatusCreated},
		{"admin read", &auth.Subject{ID: "u2", Role: RoleAdmin}, http.MethodGet, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, "/admin/genre-layers", nil)
			if tt.subject != nil {
				req = req.WithContext(auth.ContextWithSubject(req.Context(), tt.subject))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMiddleware_AuditsDenials(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStore(0)
	logger := audit.NewLogger(store, audit.DefaultConfig())
	mw := NewMiddleware(newTestEnforcer(t))
	mw.SetAuditLogger(logger)
	handler := mw.AuthorizeRequest(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, s := range []*auth.Subject{
		{ID: "u1", Role: RoleMember},
		{ID: "u2", Role: RoleAdmin},
	} {
		req := httptest.NewRequest(http.MethodPost, "/admin/genre-layers", nil)
		req = req.WithContext(auth.ContextWithSubject(req.Context(), s))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	_ = logger.Close()

	events, err := store.Query(context.Background(), audit.QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("audited %d events, want 1", len(events))
	}
	e := events[0]
	if e.Type != audit.TypeAuthzDenied || e.ActorID != "u1" || e.ActorRole != RoleMember || e.Resource != "/admin/genre-layers" {
		t.Errorf("event = %+v", e)
	}
}

func TestMethodToAction(t *testing.T) {
	t.Parallel()
	for method, want := range map[string]string{
		http.MethodGet:    "read",
		http.MethodHead:   "read",
		http.MethodPost:   "write",
		http.MethodPut:    "write",
		http.MethodPatch:  "write",
		http.MethodDelete: "delete",
	} {
		if got := methodToAction(method); got != want {
			t.Errorf("methodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}
