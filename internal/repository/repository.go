// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

// Package repository selects the storage backend named in configuration.
package repository

import (
	"context"
	"fmt"

	"github.com/tomtom215/dobbysense/internal/config"
	"github.com/tomtom215/dobbysense/internal/database"
	"github.com/tomtom215/dobbysense/internal/kvstore"
	"github.com/tomtom215/dobbysense/internal/sense"
)

// Repository is a sense.Repository with a lifecycle.
type Repository interface {
	sense.Repository
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Repository = (*database.DB)(nil)
	_ Repository = (*kvstore.Store)(nil)
)

// Open returns the backend selected by cfg.Backend.
func Open(cfg *config.DatabaseConfig) (Repository, error) {
	switch cfg.Backend {
	case config.BackendDuckDB, "":
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("duckdb: %w", err)
		}
		return db, nil
	case config.BackendBadger:
		s, err := kvstore.Open(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("badger: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}
