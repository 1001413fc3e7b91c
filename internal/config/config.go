// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

// Package config loads DobbySense configuration from defaults, an optional
// YAML file, and environment variables (highest precedence).
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
//
// Config is immutable after Load and safe for concurrent reads.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Sense    SenseConfig    `koanf:"sense"`
	Updater  UpdaterConfig  `koanf:"updater"`
	Events   EventsConfig   `koanf:"events"`
	Audit    AuditConfig    `koanf:"audit"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// Storage backends.
const (
	BackendDuckDB = "duckdb"
	BackendBadger = "badger"
)

// DatabaseConfig selects and tunes the repository backend.
type DatabaseConfig struct {
	// Backend is "duckdb" (default) or "badger".
	Backend string `koanf:"backend"`

	// Path is the DuckDB file. ":memory:" keeps everything in process.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`

	// BadgerPath is the Badger directory. Empty runs Badger in memory.
	BadgerPath string `koanf:"badger_path"`
}

// SecurityConfig covers authentication, authorization and HTTP hardening.
type SecurityConfig struct {
	// JWTSecret verifies HS256 session tokens. Required.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenCookie is read when no Authorization header is sent.
	TokenCookie string `koanf:"token_cookie"`

	// TokenIssuer, when set, must match the iss claim.
	TokenIssuer string `koanf:"token_issuer"`

	CasbinModelPath  string `koanf:"casbin_model_path"`
	CasbinPolicyPath string `koanf:"casbin_policy_path"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SenseConfig tunes the fold-in path.
type SenseConfig struct {
	// ModelCache reuses the parsed latest layer while its stamp is unchanged.
	ModelCache    bool          `koanf:"model_cache"`
	ModelCacheTTL time.Duration `koanf:"model_cache_ttl"`

	// RequestTimeout bounds model lookup and aggregation.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// PersistTimeout bounds the embedding upsert, which outlives request
	// cancellation.
	PersistTimeout time.Duration `koanf:"persist_timeout"`

	// MaxGenres caps the selectedGenres length accepted per request.
	MaxGenres int `koanf:"max_genres"`
}

// Seed policies for users rating an item before they have an embedding.
const (
	SeedGenres = "genres"
	SeedItem   = "item"
	SeedNone   = "none"
)

// UpdaterConfig holds the incremental update policy.
type UpdaterConfig struct {
	Enabled bool `koanf:"enabled"`

	// Strategy names the blend; only "ema" ships today.
	Strategy      string  `koanf:"strategy"`
	Alpha         float64 `koanf:"alpha"`
	LikeThreshold float64 `koanf:"like_threshold"`
	SeedPolicy    string  `koanf:"seed_policy"`

	Timeout time.Duration `koanf:"timeout"`

	// DispatchRate and DispatchBurst bound rating events handed to the bus.
	DispatchRate  float64 `koanf:"dispatch_rate"`
	DispatchBurst int     `koanf:"dispatch_burst"`

	// Circuit breaker around item-signal lookups.
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `koanf:"breaker_open_timeout"`
}

// Event transports.
const (
	TransportChannel = "channel"
	TransportNATS    = "nats"
)

// EventsConfig configures the rating/embedding event bus.
type EventsConfig struct {
	Transport string `koanf:"transport"`

	NATSURL      string `koanf:"nats_url"`
	NATSEmbedded bool   `koanf:"nats_embedded"`
	NATSHost     string `koanf:"nats_host"`
	NATSPort     int    `koanf:"nats_port"`
	QueueGroup   string `koanf:"queue_group"`

	RatingTopic    string `koanf:"rating_topic"`
	EmbeddingTopic string `koanf:"embedding_topic"`

	DedupTTL     time.Duration `koanf:"dedup_ttl"`
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// AuditConfig controls the security audit log.
type AuditConfig struct {
	Enabled     bool `koanf:"enabled"`
	BufferSize  int  `koanf:"buffer_size"`
	MaxEvents   int  `koanf:"max_events"`
	LogToStdout bool `koanf:"log_to_stdout"`
}
