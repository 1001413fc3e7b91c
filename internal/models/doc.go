// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

/*
Package models defines the HTTP request and response bodies of the
DobbySense API.

Domain types live in internal/sense; the structs here fix the JSON shapes
clients depend on:

  - FoldInRequest / FoldInResponse: POST /fold-in
  - GenreLayerResponse: GET /genre-layer and POST /admin/genre-layers
  - RateRequest / RateResponse: POST /movies/{id}/rate, POST /shows/{id}/rate
  - GenresResponse: GET /genres
  - EmbeddingResponse: GET /embedding
  - ErrorResponse: every non-2xx body, {"error": "..."}

Request structs carry validate tags checked by internal/validation.
*/
package models
