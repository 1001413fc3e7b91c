// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

/*
Package api serves the DobbySense HTTP API on a chi router.

Routes:

	GET  /health                 liveness and dependency checks
	GET  /metrics                Prometheus exposition
	GET  /genre-layer            latest genre layer, 404 when none
	GET  /genres                 genre catalog against the latest layer
	POST /fold-in                cold-start embedding from selected genres (auth)
	GET  /embedding              caller's stored embedding (auth)
	POST /movies/{id}/rate       store a rating, dispatch an update (auth)
	POST /shows/{id}/rate        same for shows (auth)
	POST /admin/genre-layers     publish a layer (auth, admin role)

Every error body is {"error": "..."}. Domain errors from internal/sense are
mapped to status codes in one place, statusForError:

	ErrInvalidPayload, ErrNoMatchingGenres, ErrInvalidModel, ErrInvalidRating  400
	ErrNotFound                                                                404
	ErrConflict                                                                409
	ErrModelUnavailable, ErrPersistenceFailure, anything else                  500

Missing or invalid session tokens are rejected with 401 by auth.Middleware
before a handler runs.
*/
package api
