// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

/*
Package auth verifies DobbySense session tokens.

Callers are identified by an HS256-signed JWT whose sub claim is the user ID.
The token is read from the Authorization header ("Bearer <token>") or, when
no header is sent, from the configured session cookie. Tokens are issued by
the surrounding application; GenerateToken exists for tests and sensectl.

Key Components:

  - JWTManager: token signing and validation
  - Subject: the authenticated caller attached to the request context
  - Middleware: rejects unauthenticated requests with 401 {"error": ...}

Roles travel in the role claim and are evaluated by internal/authz.
*/
package auth
