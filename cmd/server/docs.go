// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

// @title DobbySense API
// @version 1.0
// @description Taste embeddings for cold-start and rating-driven personalization.
// @description
// @description ## Authentication
// @description
// @description Endpoints other than /health, /metrics, /genre-layer and /genres require an
// @description HS256 session token, sent as `Authorization: Bearer <token>` or in the session cookie.
// @description Publishing genre layers and reading the audit log require the `admin` role.
// @description
// @description ## Error Responses
// @description
// @description All error responses carry a single message:
// @description ```json
// @description {"error": "Human-readable error message"}
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/dobbysense/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8080
// @BasePath /
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Session JWT as "Bearer <token>". sensectl token mints one for testing.
//
// @tag.name Embeddings
// @tag.description Cold-start fold-in and the caller's stored embedding
//
// @tag.name Genre Layers
// @tag.description The latest genre layer and the genre catalog
//
// @tag.name Ratings
// @tag.description Movie and show ratings that nudge the caller's embedding
//
// @tag.name Admin
// @tag.description Layer publishing and the audit log (admin role)
//
// @tag.name System
// @tag.description Liveness
package main
