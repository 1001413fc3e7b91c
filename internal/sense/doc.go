// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

// Package sense implements the DobbySense taste-embedding engine.
//
// A FactorModel (the "genre layer") maps each genre label to a column of an
// F x G weight matrix. Users without rating history get an embedding by
// folding in a genre selection: the selected columns are averaged and the
// model bias is added. Users who rate items have their stored embedding
// nudged toward the item's vector by an UpdateStrategy.
//
// # Components
//
//   - FoldIn: the pure aggregation step
//   - LabelResolver: label to column resolution with display-name aliases
//   - Service: fold-in orchestration against a Repository
//   - ModelCache: stamp-checked cache of the latest layer
//   - Updater: incremental updates driven by RatingEvents
//   - MemoryStore: in-process Repository used by tests and dry runs
//
// Storage backends live in internal/database (DuckDB) and internal/kvstore
// (Badger); both satisfy Repository.
package sense
