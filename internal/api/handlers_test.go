// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/dobbysense/internal/audit"
	"github.com/tomtom215/dobbysense/internal/models"
	"github.com/tomtom215/dobbysense/internal/sense"
)

func TestRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantType   sense.ItemType
	}{
		{name: "movie", path: "/movies/603/rate", body: `{"rating": 8}`, wantStatus: http.StatusOK, wantType: sense.ItemMovie},
		{name: "show", path: "/shows/1399/rate", body: `{"rating": 4}`, wantStatus: http.StatusOK, wantType: sense.ItemShow},
		{name: "non-integer id", path: "/movies/abc/rate", body: `{"rating": 8}`, wantStatus: http.StatusBadRequest},
		{name: "negative id", path: "/movies/-5/rate", body: `{"rating": 8}`, wantStatus: http.StatusBadRequest},
		{name: "rating too high", path: "/movies/603/rate", body: `{"rating": 11}`, wantStatus: http.StatusBadRequest},
		{name: "rating too low", path: "/movies/603/rate", body: `{"rating": 0}`, wantStatus: http.StatusBadRequest},
		{name: "rating not a number", path: "/movies/603/rate", body: `{"rating": "great"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, true)
			rec := srv.do(t, http.MethodPost, tt.path, srv.token(t, "rater", ""), tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			events := srv.dispatcher.all()
			if tt.wantStatus != http.StatusOK {
				errorMessage(t, rec)
				if len(events) != 0 {
					t.Errorf("dispatched %d events for a rejected rating", len(events))
				}
				return
			}

			var resp models.RateResponse
			decodeBody(t, rec, &resp)
			if !resp.Success || resp.Rating == nil || resp.Rating.ItemType != tt.wantType || resp.Rating.UserID != "rater" {
				t.Fatalf("response = %+v", resp)
			}
			if len(events) != 1 {
				t.Fatalf("dispatched %d events, want 1", len(events))
			}
			ev := events[0]
			if ev.EventID == "" || ev.UserID != "rater" || ev.ItemType != tt.wantType || ev.Rating != resp.Rating.Rating {
				t.Errorf("event = %+v", ev)
			}
			if err := ev.Validate(); err != nil {
				t.Errorf("dispatched event invalid: %v", err)
			}
		})
	}
}

func TestRate_Unauthenticated(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)
	rec := srv.do(t, http.MethodPost, "/movies/603/rate", "", `{"rating": 8}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if n := len(srv.dispatcher.all()); n != 0 {
		t.Errorf("dispatched %d events", n)
	}
}

func validLayerBody(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"genre_names": []string{"g5", "g3"},
		"weight":      [][]float64{{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.6}},
		"bias":        []float64{0, 0, 0},
	}
}

func TestPublishGenreLayer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		role       string
		body       interface{}
		wantStatus int
	}{
		{name: "admin publishes", role: "admin", body: validLayerBody("v2"), wantStatus: http.StatusCreated},
		{name: "member forbidden", role: "member", body: validLayerBody("v2"), wantStatus: http.StatusForbidden},
		{name: "no role forbidden", role: "", body: validLayerBody("v2"), wantStatus: http.StatusForbidden},
		{name: "ragged matrix", role: "admin", body: map[string]interface{}{
			"name": "bad", "genre_names": []string{"a", "b"}, "weight": [][]float64{{1, 2}, {3}},
		}, wantStatus: http.StatusBadRequest},
		{name: "missing name", role: "admin", body: map[string]interface{}{
			"genre_names": []string{"a"}, "weight": [][]float64{{1}},
		}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, true)
			rec := srv.do(t, http.MethodPost, "/admin/genre-layers", srv.token(t, "ops", tt.role), tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			latest, err := srv.store.LatestModel(context.Background())
			if err != nil {
				t.Fatalf("LatestModel() error = %v", err)
			}
			if tt.wantStatus == http.StatusCreated {
				if latest.Name != "v2" {
					t.Errorf("latest layer = %q, want v2", latest.Name)
				}
				return
			}
			if latest.Name != "test-layer" {
				t.Errorf("rejected layer replaced the latest: %q", latest.Name)
			}
		})
	}
}

func TestPublishGenreLayer_StoreAssignsCreatedAt(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)
	before := time.Now().Add(-time.Second)

	body := validLayerBody("v2")
	body["created_at"] = "2020-01-01T00:00:00Z"
	rec := srv.do(t, http.MethodPost, "/admin/genre-layers", srv.token(t, "ops", "admin"), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	latest, err := srv.store.LatestModel(context.Background())
	if err != nil {
		t.Fatalf("LatestModel() error = %v", err)
	}
	if latest.CreatedAt.Before(before) {
		t.Errorf("created_at = %s, want the publish time", latest.CreatedAt)
	}
}

func TestPublishGenreLayer_NextFoldInUsesNewLayer(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)
	user := srv.token(t, "user-n", "")

	// Warm the model cache with the old layer.
	rec := srv.do(t, http.MethodPost, "/fold-in", user, map[string][]string{"selectedGenres": {"Action"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("first fold-in status = %d", rec.Code)
	}

	if rec := srv.do(t, http.MethodPost, "/admin/genre-layers", srv.token(t, "ops", "admin"), validLayerBody("v2")); rec.Code != http.StatusCreated {
		t.Fatalf("publish status = %d", rec.Code)
	}

	// "Action" resolves to g5 through the display alias.
	rec = srv.do(t, http.MethodPost, "/fold-in", user, map[string][]string{"selectedGenres": {"Action"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("second fold-in status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.FoldInResponse
	decodeBody(t, rec, &resp)
	assertVector(t, resp.Embedding, []float64{0.1, 0.3, 0.5})
}

func TestAuditLog(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)
	admin := srv.token(t, "ops", "admin")

	if rec := srv.do(t, http.MethodPost, "/admin/genre-layers", admin, validLayerBody("v2")); rec.Code != http.StatusCreated {
		t.Fatalf("publish status = %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, "/admin/genre-layers", srv.token(t, "u1", "member"), validLayerBody("v3")); rec.Code != http.StatusForbidden {
		t.Fatalf("member publish status = %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, "/admin/audit", srv.token(t, "u1", "member"), nil); rec.Code != http.StatusForbidden {
		t.Errorf("member audit read = %d, want 403", rec.Code)
	}

	var got models.AuditResponse
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := srv.do(t, http.MethodGet, "/admin/audit?type=layer.published,authz.denied", admin, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("audit status = %d: %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &got)
		// publish, member publish denial, member audit denial
		if len(got.Events) >= 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(got.Events) != 3 {
		t.Fatalf("events = %+v, want 3", got.Events)
	}

	var published *audit.Event
	denied := 0
	for i := range got.Events {
		switch got.Events[i].Type {
		case audit.TypeLayerPublished:
			published = &got.Events[i]
		case audit.TypeAuthzDenied:
			denied++
			if got.Events[i].ActorID != "u1" {
				t.Errorf("denial actor = %q", got.Events[i].ActorID)
			}
		}
	}
	if published == nil || published.ActorID != "ops" || published.Resource != "v2" || published.Outcome != audit.OutcomeSuccess {
		t.Errorf("published event = %+v", published)
	}
	if denied != 2 {
		t.Errorf("denials = %d, want 2", denied)
	}

	rec := srv.do(t, http.MethodGet, "/admin/audit?actor=ops&limit=1", admin, nil)
	decodeBody(t, rec, &got)
	if len(got.Events) != 1 || got.Events[0].ActorID != "ops" {
		t.Errorf("filtered events = %+v", got.Events)
	}
}

func TestAuditLog_BadQuery(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)
	admin := srv.token(t, "ops", "admin")

	for _, q := range []string{"limit=0", "limit=5000", "limit=x", "since=yesterday"} {
		rec := srv.do(t, http.MethodGet, "/admin/audit?"+q, admin, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.HealthResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "healthy" || resp.Checks["database"] != "ok" || resp.Version != "test" {
		t.Errorf("health = %+v", resp)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_Degraded(t *testing.T) {
	t.Parallel()
	h := NewHandler(testConfig(), nil, nil)
	h.AddHealthCheck("database", failingPinger{})

	rec := serve(&testServer{handler: NewRouter(h, nil, nil, nil).Setup()}, newJSONRequest(t, http.MethodGet, "/health", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.HealthResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "degraded" || !strings.HasPrefix(resp.Checks["database"], "error") {
		t.Errorf("health = %+v", resp)
	}
}

type staticBreaker string

func (b staticBreaker) State() string { return string(b) }

func TestHealth_Breakers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state      string
		wantStatus string
	}{
		{"closed", "healthy"},
		{"half-open", "healthy"},
		{"open", "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(testConfig(), nil, nil)
			h.AddBreaker("item_signals", staticBreaker(tt.state))

			rec := serve(&testServer{handler: NewRouter(h, nil, nil, nil).Setup()}, newJSONRequest(t, http.MethodGet, "/health", ""))
			var resp models.HealthResponse
			decodeBody(t, rec, &resp)
			if resp.Status != tt.wantStatus || resp.Breakers["item_signals"] != tt.state {
				t.Errorf("health = %+v", resp)
			}
		})
	}
}

func TestStatusForError(t *testing.T) {
	t.Parallel()
	wrap := func(err error) error { return fmt.Errorf("context: %w", err) }

	tests := []struct {
		err  error
		want int
	}{
		{wrap(sense.ErrInvalidPayload), http.StatusBadRequest},
		{wrap(sense.ErrNoMatchingGenres), http.StatusBadRequest},
		{wrap(sense.ErrInvalidModel), http.StatusBadRequest},
		{wrap(sense.ErrInvalidRating), http.StatusBadRequest},
		{wrap(sense.ErrNotFound), http.StatusNotFound},
		{wrap(sense.ErrConflict), http.StatusConflict},
		{wrap(sense.ErrModelUnavailable), http.StatusInternalServerError},
		{fmt.Errorf("%w: %w", sense.ErrModelUnavailable, sense.ErrInvalidModel), http.StatusInternalServerError},
		{wrap(sense.ErrPersistenceFailure), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
