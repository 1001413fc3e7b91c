// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

/*
Package database implements the DobbySense repository on DuckDB.

Tables:
  - genre_layers: append-only genre layer snapshots (JSON encoded matrix)
  - user_embeddings: one versioned embedding per user
  - item_embeddings: per-item vectors and genre labels
  - user_genre_preferences: a user's declared favourite genres
  - ratings: one rating per user and item

Vectors and label lists are stored as JSON text so a layer of any shape
round-trips without schema changes.

Writes to a single user's embedding or rating are serialized through a
per-key mutex; the version column is checked inside the same transaction,
which gives SwapEmbedding its compare-and-swap semantics.
*/
package database
