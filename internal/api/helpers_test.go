// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package api

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dobbysense/internal/audit"
	"github.com/tomtom215/dobbysense/internal/auth"
	"github.com/tomtom215/dobbysense/internal/authz"
	"github.com/tomtom215/dobbysense/internal/config"
	"github.com/tomtom215/dobbysense/internal/sense"
)

const testJWTSecret = "test_secret_with_at_least_32_characters_for_testing"

var errStoreDown = errors.New("store down")

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         testJWTSecret,
			TokenCookie:       "sb-access-token",
			RateLimitDisabled: true,
		},
		Sense: config.SenseConfig{
			RequestTimeout: 5 * time.Second,
			PersistTimeout: 5 * time.Second,
			MaxGenres:      8,
		},
	}
}

func testLayer() *sense.FactorModel {
	return &sense.FactorModel{
		Name:        "test-layer",
		GenreLabels: []string{"Action", "Drama", "Horror"},
		Weight: [][]float64{
			{1, 0, 2},
			{0, 3, 1},
		},
		Bias: []float64{0.5, -0.5},
	}
}

// recordingDispatcher captures dispatched rating events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []*sense.RatingEvent
}

func (d *recordingDispatcher) DispatchRating(_ context.Context, ev *sense.RatingEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *recordingDispatcher) all() []*sense.RatingEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*sense.RatingEvent(nil), d.events...)
}

// brokenModels fails every model read.
type brokenModels struct{}

func (brokenModels) LatestModel(context.Context) (*sense.FactorModel, error) {
	return nil, errStoreDown
}

// brokenEmbeddings fails every embedding write.
type brokenEmbeddings struct {
	*sense.MemoryStore
}

func (brokenEmbeddings) UpsertEmbedding(context.Context, string, []float64) (*sense.UserEmbedding, error) {
	return nil, errStoreDown
}

type testServer struct {
	store      *sense.MemoryStore
	dispatcher *recordingDispatcher
	jwt        *auth.JWTManager
	audit      *audit.Logger
	handler    http.Handler
}

type serverOption func(*testServerDeps)

type testServerDeps struct {
	models     sense.ModelSource
	embeddings sense.EmbeddingStore
}

func withModels(m sense.ModelSource) serverOption {
	return func(d *testServerDeps) { d.models = m }
}

func withEmbeddings(e sense.EmbeddingStore) serverOption {
	return func(d *testServerDeps) { d.embeddings = e }
}

// newTestServer wires the full router over a MemoryStore. With seed, the
// store holds testLayer.
func newTestServer(t *testing.T, seed bool, opts ...serverOption) *testServer {
	t.Helper()
	cfg := testConfig()
	store := sense.NewMemoryStore()
	if seed {
		if _, err := store.InsertModel(context.Background(), testLayer()); err != nil {
			t.Fatalf("InsertModel() error = %v", err)
		}
	}

	cache := sense.NewModelCache(store, time.Minute)
	deps := &testServerDeps{}
	for _, opt := range opts {
		opt(deps)
	}
	if deps.models == nil {
		deps.models = cache
	}
	if deps.embeddings == nil {
		deps.embeddings = store
	}
	service := sense.NewService(deps.models, deps.embeddings,
		sense.WithPreferences(store),
		sense.WithPersistTimeout(cfg.Sense.PersistTimeout),
	)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	enforcer, err := authz.NewEnforcer(authz.DefaultEnforcerConfig())
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	auditLogger := audit.NewLogger(audit.NewMemoryStore(0), audit.DefaultConfig())
	t.Cleanup(func() { _ = auditLogger.Close() })

	dispatcher := &recordingDispatcher{}
	h := NewHandler(cfg, service, store)
	h.SetAuditLogger(auditLogger)
	h.SetPublisher(sense.NewLayerPublisher(store, cache))
	h.SetDispatcher(dispatcher)
	h.AddHealthCheck("database", store)
	h.SetVersion("test")

	authzMW := authz.NewMiddleware(enforcer)
	authzMW.SetAuditLogger(auditLogger)

	router := NewRouter(h,
		auth.NewMiddleware(jwtManager, cfg.Security.TokenCookie),
		authzMW,
		NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&cfg.Security)),
	)

	return &testServer{
		store:      store,
		dispatcher: dispatcher,
		jwt:        jwtManager,
		audit:      auditLogger,
		handler:    router.Setup(),
	}
}

func (s *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := s.jwt.GenerateToken(userID, role, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return tok
}

// do sends body (marshalled unless it is a string) with an optional token.
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &body)
	if body.Error == "" {
		t.Fatalf("response %q has no error field", rec.Body.String())
	}
	return body.Error
}

func assertVector(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("vector = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("vector = %v, want %v", got, want)
		}
	}
}

func newJSONRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(s *testServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}
