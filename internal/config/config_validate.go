// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package config

import (
	"fmt"
	"strings"
)

const minJWTSecretLength = 32

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	for _, validate := range []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateSecurity,
		c.validateLogging,
		c.validateSense,
		c.validateUpdater,
		c.validateEvents,
		c.validateAudit,
	} {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Backend {
	case BackendDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when DB_BACKEND=duckdb")
		}
		if c.Database.Threads < 0 {
			return fmt.Errorf("DUCKDB_THREADS must be non-negative")
		}
	case BackendBadger:
	default:
		return fmt.Errorf("DB_BACKEND must be %q or %q, got %q", BackendDuckDB, BackendBadger, c.Database.Backend)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a recognised level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

func (c *Config) validateSense() error {
	if c.Sense.RequestTimeout <= 0 || c.Sense.PersistTimeout <= 0 {
		return fmt.Errorf("SENSE_REQUEST_TIMEOUT and SENSE_PERSIST_TIMEOUT must be positive")
	}
	if c.Sense.ModelCache && c.Sense.ModelCacheTTL <= 0 {
		return fmt.Errorf("SENSE_MODEL_CACHE_TTL must be positive when the model cache is enabled")
	}
	if c.Sense.MaxGenres < 1 {
		return fmt.Errorf("SENSE_MAX_GENRES must be at least 1")
	}
	return nil
}

func (c *Config) validateUpdater() error {
	u := c.Updater
	if !u.Enabled {
		return nil
	}
	if u.Strategy != "ema" {
		return fmt.Errorf("UPDATER_STRATEGY %q is not supported", u.Strategy)
	}
	if u.Alpha <= 0 || u.Alpha > 1 {
		return fmt.Errorf("UPDATER_ALPHA must be in (0, 1]")
	}
	if u.LikeThreshold < 0 || u.LikeThreshold > 10 {
		return fmt.Errorf("UPDATER_LIKE_THRESHOLD must be within the 0-10 rating scale")
	}
	switch u.SeedPolicy {
	case SeedGenres, SeedItem, SeedNone:
	default:
		return fmt.Errorf("UPDATER_SEED_POLICY must be one of %s, %s, %s", SeedGenres, SeedItem, SeedNone)
	}
	if u.DispatchRate <= 0 || u.DispatchBurst < 1 {
		return fmt.Errorf("UPDATER_DISPATCH_RATE and UPDATER_DISPATCH_BURST must be positive")
	}
	if u.BreakerFailureRatio <= 0 || u.BreakerFailureRatio > 1 {
		return fmt.Errorf("UPDATER_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateEvents() error {
	e := c.Events
	switch e.Transport {
	case TransportChannel:
	case TransportNATS:
		if !e.NATSEmbedded && e.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_TRANSPORT=nats without an embedded server")
		}
		if e.NATSEmbedded && (e.NATSPort < 0 || e.NATSPort > 65535) {
			return fmt.Errorf("NATS_PORT must be between 0 and 65535")
		}
	default:
		return fmt.Errorf("EVENTS_TRANSPORT must be %q or %q", TransportChannel, TransportNATS)
	}
	if e.RatingTopic == "" || e.EmbeddingTopic == "" {
		return fmt.Errorf("event topics must not be empty")
	}
	if e.RatingTopic == e.EmbeddingTopic {
		return fmt.Errorf("EVENTS_RATING_TOPIC and EVENTS_EMBEDDING_TOPIC must differ")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.BufferSize < 1 || c.Audit.MaxEvents < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE and AUDIT_MAX_EVENTS must be positive")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}
