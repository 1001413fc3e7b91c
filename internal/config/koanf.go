// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/dobbysense/config.yaml",
	"/etc/dobbysense/config.yml",
}

// ConfigPathEnvVar points at an explicit YAML file.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Backend:   BackendDuckDB,
			Path:      "/data/dobbysense.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = DuckDB default
		},
		Security: SecurityConfig{
			TokenCookie:     "sb-access-token",
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Sense: SenseConfig{
			ModelCache:     true,
			ModelCacheTTL:  10 * time.Minute,
			RequestTimeout: 10 * time.Second,
			PersistTimeout: 5 * time.Second,
			MaxGenres:      64,
		},
		Updater: UpdaterConfig{
			Enabled:             true,
			Strategy:            "ema",
			Alpha:               0.05,
			LikeThreshold:       6.0,
			SeedPolicy:          SeedGenres,
			Timeout:             10 * time.Second,
			DispatchRate:        50,
			DispatchBurst:       100,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
			BreakerOpenTimeout:  30 * time.Second,
		},
		Events: EventsConfig{
			Transport:      TransportChannel,
			NATSURL:        "nats://127.0.0.1:4222",
			NATSHost:       "127.0.0.1",
			NATSPort:       4222,
			QueueGroup:     "dobbysense",
			RatingTopic:    "sense.ratings",
			EmbeddingTopic: "sense.embedding.updated",
			DedupTTL:       5 * time.Minute,
			CloseTimeout:   10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1000,
			MaxEvents:  10000,
		},
	}
}

// Load reads configuration: defaults, then the YAML file, then environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths accept comma-separated strings from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	"db_backend":        "database.backend",
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"badger_path":       "database.badger_path",

	"jwt_secret":          "security.jwt_secret",
	"token_cookie":        "security.token_cookie",
	"token_issuer":        "security.token_issuer",
	"casbin_model_path":   "security.casbin_model_path",
	"casbin_policy_path":  "security.casbin_policy_path",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"sense_model_cache":     "sense.model_cache",
	"sense_model_cache_ttl": "sense.model_cache_ttl",
	"sense_request_timeout": "sense.request_timeout",
	"sense_persist_timeout": "sense.persist_timeout",
	"sense_max_genres":      "sense.max_genres",

	"updater_enabled":               "updater.enabled",
	"updater_strategy":              "updater.strategy",
	"updater_alpha":                 "updater.alpha",
	"updater_like_threshold":        "updater.like_threshold",
	"updater_seed_policy":           "updater.seed_policy",
	"updater_timeout":               "updater.timeout",
	"updater_dispatch_rate":         "updater.dispatch_rate",
	"updater_dispatch_burst":        "updater.dispatch_burst",
	"updater_breaker_min_requests":  "updater.breaker_min_requests",
	"updater_breaker_failure_ratio": "updater.breaker_failure_ratio",
	"updater_breaker_open_timeout":  "updater.breaker_open_timeout",

	"events_transport":       "events.transport",
	"nats_url":               "events.nats_url",
	"nats_embedded":          "events.nats_embedded",
	"nats_host":              "events.nats_host",
	"nats_port":              "events.nats_port",
	"nats_queue_group":       "events.queue_group",
	"events_rating_topic":    "events.rating_topic",
	"events_embedding_topic": "events.embedding_topic",
	"events_dedup_ttl":       "events.dedup_ttl",
	"events_close_timeout":   "events.close_timeout",

	"audit_enabled":       "audit.enabled",
	"audit_buffer_size":   "audit.buffer_size",
	"audit_max_events":    "audit.max_events",
	"audit_log_to_stdout": "audit.log_to_stdout",
}

// envTransformFunc maps flat environment names onto koanf keys. Unknown
// variables map to "" and are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
