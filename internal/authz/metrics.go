// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthzDecisions counts enforcement decisions.
	// Labels:
	//   - decision: "allow", "deny"
	//   - cached: "true", "false"
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_authz_decisions_total",
			Help: "Authorization decisions by result and cache use",
		},
		[]string{"decision", "cached"},
	)
)

// RecordDecision counts one decision.
func RecordDecision(allowed, cached bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	c := "false"
	if cached {
		c = "true"
	}
	AuthzDecisions.WithLabelValues(decision, c).Inc()
}
