// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

// Package main is the DobbySense server.
//
// DobbySense folds a user's selected genres through a published genre
// layer into a taste embedding, stores it, and nudges it as the user rates
// movies and shows.
//
// # Startup
//
//  1. Configuration: Koanf v2 defaults, config.yaml, then environment
//  2. Logging: zerolog, json in production
//  3. Repository: DuckDB (default) or Badger
//  4. Sense: model cache, fold-in service, layer publisher
//  5. Events: Watermill bus (Go channel or NATS), dispatcher, rating router
//  6. HTTP: chi router with JWT authentication and Casbin authorization
//  7. Supervision: suture tree running the router, dispatcher drain and
//     HTTP server
//
// # Signals
//
// SIGINT and SIGTERM cancel the tree. The HTTP server stops accepting
// connections, in-flight event publishes drain, then the bus and the
// repository close.
//
// # Example
//
//	export JWT_SECRET=$(openssl rand -hex 32)
//	export DUCKDB_PATH=/var/lib/dobbysense/sense.duckdb
//	./dobbysense
package main
