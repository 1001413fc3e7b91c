// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package auth

import (
	"context"
	"errors"
)

// Standard authentication errors
var (
	// ErrNoCredentials indicates no token was provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates the token failed validation.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates the token has expired.
	ErrExpiredCredentials = errors.New("credentials expired")
)

// Subject is the authenticated caller.
type Subject struct {
	ID    string
	Role  string
	Email string
}

// HasRole reports whether the subject carries role.
func (s *Subject) HasRole(role string) bool {
	return s != nil && s.Role == role
}

func subjectFromClaims(c *Claims) *Subject {
	return &Subject{ID: c.Subject, Role: c.Role, Email: c.Email}
}

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// ContextWithSubject attaches s to ctx.
func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, s)
}

// SubjectFromContext returns the subject attached by Middleware, if any.
func SubjectFromContext(ctx context.Context) (*Subject, bool) {
	s, ok := ctx.Value(subjectContextKey).(*Subject)
	return s, ok && s != nil
}
