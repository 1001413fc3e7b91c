// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/dobbysense/internal/models"
	"github.com/tomtom215/dobbysense/internal/sense"
)

func TestFoldIn_EndToEnd(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)
	token := srv.token(t, "user-1", "")

	rec := srv.do(t, http.MethodPost, "/fold-in", token, map[string][]string{
		"selectedGenres": {"Action", "Horror"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp models.FoldInResponse
	decodeBody(t, rec, &resp)
	if !resp.OK {
		t.Error("ok = false")
	}
	assertVector(t, resp.Embedding, []float64{2, 0})
	if resp.DB == nil || resp.DB.UserID != "user-1" || resp.DB.Version != 1 {
		t.Fatalf("db = %+v, want user-1 version 1", resp.DB)
	}
	assertVector(t, resp.DB.Embedding, []float64{2, 0})

	stored, err := srv.store.GetEmbedding(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetEmbedding() error = %v", err)
	}
	assertVector(t, stored.Embedding, []float64{2, 0})

	prefs, err := srv.store.GenrePreferences(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GenrePreferences() error = %v", err)
	}
	if strings.Join(prefs, ",") != "Action,Horror" {
		t.Errorf("preferences = %v, want [Action Horror]", prefs)
	}
}

func TestFoldIn_UnknownLabelDropped(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/fold-in", srv.token(t, "user-2", ""), map[string][]string{
		"selectedGenres": {"Action", "NotAGenre"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.FoldInResponse
	decodeBody(t, rec, &resp)
	assertVector(t, resp.Embedding, []float64{1.5, -0.5})
}

func TestFoldIn_OnlyUnknownKeepsPriorState(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)
	token := srv.token(t, "user-3", "")

	if rec := srv.do(t, http.MethodPost, "/fold-in", token, map[string][]string{"selectedGenres": {"Drama"}}); rec.Code != http.StatusOK {
		t.Fatalf("seed fold-in status = %d", rec.Code)
	}

	rec := srv.do(t, http.MethodPost, "/fold-in", token, map[string][]string{"selectedGenres": {"Polka", "Opera"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, sense.ErrNoMatchingGenres.Error()) {
		t.Errorf("error = %q, want no matching genres", msg)
	}

	stored, err := srv.store.GetEmbedding(context.Background(), "user-3")
	if err != nil {
		t.Fatalf("GetEmbedding() error = %v", err)
	}
	assertVector(t, stored.Embedding, []float64{0.5, 2.5})
	if stored.Version != 1 {
		t.Errorf("version = %d, want 1", stored.Version)
	}
}

func TestFoldIn_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		seed       bool
		opts       []serverOption
		noToken    bool
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{name: "unauthenticated", seed: true, noToken: true, body: map[string][]string{"selectedGenres": {"Action"}}, wantStatus: http.StatusUnauthorized},
		{name: "empty selection", seed: true, body: map[string][]string{"selectedGenres": {}}, wantStatus: http.StatusBadRequest, wantError: "invalid payload"},
		{name: "missing field", seed: true, body: map[string]string{"genres": "Action"}, wantStatus: http.StatusBadRequest, wantError: "selectedGenres is required"},
		{name: "wrong type", seed: true, body: `{"selectedGenres": "Action"}`, wantStatus: http.StatusBadRequest, wantError: "malformed JSON"},
		{name: "malformed JSON", seed: true, body: `{"selectedGenres": [`, wantStatus: http.StatusBadRequest, wantError: "malformed JSON"},
		{name: "empty body", seed: true, body: "", wantStatus: http.StatusBadRequest, wantError: "request body is required"},
		{name: "blank label", seed: true, body: map[string][]string{"selectedGenres": {"Action", ""}}, wantStatus: http.StatusBadRequest},
		{name: "too many labels", seed: true, body: map[string][]string{"selectedGenres": {"a", "b", "c", "d", "e", "f", "g", "h", "i"}}, wantStatus: http.StatusBadRequest, wantError: "at most 8"},
		{name: "no layer published", seed: false, body: map[string][]string{"selectedGenres": {"Action"}}, wantStatus: http.StatusInternalServerError, wantError: "model unavailable"},
		{name: "model store down", seed: true, opts: []serverOption{withModels(brokenModels{})}, body: map[string][]string{"selectedGenres": {"Action"}}, wantStatus: http.StatusInternalServerError, wantError: "model unavailable"},
		{name: "upsert fails", seed: true, opts: []serverOption{withEmbeddings(brokenEmbeddings{sense.NewMemoryStore()})}, body: map[string][]string{"selectedGenres": {"Action"}}, wantStatus: http.StatusInternalServerError, wantError: "persistence failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, tt.seed, tt.opts...)
			token := ""
			if !tt.noToken {
				token = srv.token(t, "user-err", "")
			}

			rec := srv.do(t, http.MethodPost, "/fold-in", token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			msg := errorMessage(t, rec)
			if tt.wantError != "" && !strings.Contains(msg, tt.wantError) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.wantError)
			}
			if strings.Contains(msg, errStoreDown.Error()) {
				t.Errorf("error %q leaks store detail", msg)
			}

			if _, err := srv.store.GetEmbedding(context.Background(), "user-err"); !errors.Is(err, sense.ErrNotFound) {
				t.Errorf("embedding persisted after failed fold-in: %v", err)
			}
		})
	}
}

func TestFoldIn_CookieToken(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)

	req := newJSONRequest(t, http.MethodPost, "/fold-in", `{"selectedGenres":["Drama"]}`)
	req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: srv.token(t, "cookie-user", "")})
	rec := serve(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestGenreLayer(t *testing.T) {
	t.Parallel()

	t.Run("latest layer", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, true)
		rec := srv.do(t, http.MethodGet, "/genre-layer", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp struct {
			Model struct {
				Name       string      `json:"name"`
				GenreNames []string    `json:"genre_names"`
				Weight     [][]float64 `json:"weight"`
				Bias       []float64   `json:"bias"`
				CreatedAt  string      `json:"created_at"`
			} `json:"model"`
		}
		decodeBody(t, rec, &resp)
		if resp.Model.Name != "test-layer" || len(resp.Model.GenreNames) != 3 || len(resp.Model.Weight) != 2 {
			t.Errorf("model = %+v", resp.Model)
		}
		if resp.Model.CreatedAt == "" {
			t.Error("created_at missing")
		}
	})

	t.Run("none published", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, false)
		rec := srv.do(t, http.MethodGet, "/genre-layer", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		errorMessage(t, rec)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, true, withModels(brokenModels{}))
		rec := srv.do(t, http.MethodGet, "/genre-layer", "", nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
	})
}

func TestGenres(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodGet, "/genres", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.GenresResponse
	decodeBody(t, rec, &resp)

	available := map[string]bool{}
	for _, g := range resp.Genres {
		available[g.Name] = g.Available
	}
	if !available["Action"] || !available["Horror"] {
		t.Errorf("Action and Horror should be available: %v", available)
	}
	if available["Western"] {
		t.Error("Western is not in the test layer")
	}
}

func TestEmbedding(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, true)
	token := srv.token(t, "user-e", "")

	if rec := srv.do(t, http.MethodGet, "/embedding", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("before fold-in status = %d, want 404", rec.Code)
	}
	srv.do(t, http.MethodPost, "/fold-in", token, map[string][]string{"selectedGenres": {"Action"}})

	rec := srv.do(t, http.MethodGet, "/embedding", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.EmbeddingResponse
	decodeBody(t, rec, &resp)
	assertVector(t, resp.Embedding.Embedding, []float64{1.5, -0.5})
}
