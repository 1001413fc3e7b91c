// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/dobbysense/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

func newTestManager(t *testing.T, issuer string) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, TokenIssuer: issuer})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *config.SecurityConfig
		wantErr bool
	}{
		{name: "valid secret", cfg: &config.SecurityConfig{JWTSecret: testSecret}},
		{name: "empty secret", cfg: &config.SecurityConfig{}, wantErr: true},
		{name: "nil config", cfg: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := NewJWTManager(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewJWTManager() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && m == nil {
				t.Error("NewJWTManager() returned nil manager")
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, "")

	token, err := m.GenerateToken("user-123", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("Subject = %q, want user-123", claims.Subject)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want admin", claims.Role)
	}

	if _, err := m.GenerateToken("", "", time.Hour); err == nil {
		t.Error("GenerateToken() with empty user ID should fail")
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, "")

	sign := func(method jwt.SigningMethod, key interface{}, claims *Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}
	base := func(sub string, exp time.Time) *Claims {
		return &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		}}
	}
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "malformed", token: "not-a-token", want: ErrInvalidCredentials},
		{name: "wrong secret", token: sign(jwt.SigningMethodHS256, []byte("another_secret_that_is_long_enough_123"), base("u", future)), want: ErrInvalidCredentials},
		{name: "expired", token: sign(jwt.SigningMethodHS256, []byte(testSecret), base("u", time.Now().Add(-time.Minute))), want: ErrExpiredCredentials},
		{name: "missing subject", token: sign(jwt.SigningMethodHS256, []byte(testSecret), base("", future)), want: ErrInvalidCredentials},
		{name: "alg none", token: sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, base("u", future)), want: ErrInvalidCredentials},
		{name: "HS512 not accepted", token: sign(jwt.SigningMethodHS512, []byte(testSecret), base("u", future)), want: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := m.ValidateToken(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateToken() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateToken_Issuer(t *testing.T) {
	t.Parallel()
	issuing := newTestManager(t, "https://auth.example.com")
	other := newTestManager(t, "https://elsewhere.example.com")
	open := newTestManager(t, "")

	token, err := issuing.GenerateToken("user-1", "", 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := issuing.ValidateToken(token); err != nil {
		t.Errorf("same issuer: error = %v", err)
	}
	if _, err := open.ValidateToken(token); err != nil {
		t.Errorf("no issuer check: error = %v", err)
	}
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("issuer mismatch: error = %v, want ErrInvalidCredentials", err)
	}
}
