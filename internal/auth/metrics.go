// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts counts token checks.
	// Labels:
	//   - outcome: "success", "missing", "invalid", "expired"
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_auth_attempts_total",
			Help: "Session token checks by outcome",
		},
		[]string{"outcome"},
	)
)
