// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

// Package metrics declares the Prometheus collectors for DobbySense and the
// helpers that record into them. Collectors register with the default
// registry and are served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_api_requests_total",
			Help: "Total API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dobbysense_api_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dobbysense_api_active_requests",
			Help: "In-flight API requests",
		},
	)

	// Fold-in
	FoldInTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_foldin_total",
			Help: "Fold-in attempts by outcome",
		},
		[]string{"outcome"}, // ok, invalid_payload, no_matching_genres, model_unavailable, persistence_failure
	)

	FoldInDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dobbysense_foldin_duration_seconds",
			Help:    "Fold-in latency including model load and upsert",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	FoldInDroppedLabels = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dobbysense_foldin_dropped_labels_total",
			Help: "Selected genre labels not present in the model vocabulary",
		},
	)

	// Model cache
	ModelCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_model_cache_lookups_total",
			Help: "Latest-layer cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	// Incremental updater
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_embedding_updates_total",
			Help: "Incremental embedding updates by outcome",
		},
		[]string{"outcome"},
	)

	UpdateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dobbysense_embedding_update_duration_seconds",
			Help:    "Incremental update latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Event dispatch
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_events_published_total",
			Help: "Events handed to the bus by topic and result",
		},
		[]string{"topic", "result"}, // ok, error, dropped
	)

	EventsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dobbysense_events_duplicate_total",
			Help: "Redelivered events suppressed by deduplication",
		},
	)

	// Audit
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_audit_events_total",
			Help: "Audit events by type and result",
		},
		[]string{"type", "result"}, // stored, dropped, error
	)

	// Storage
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dobbysense_store_operation_duration_seconds",
			Help:    "Repository operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_store_operation_errors_total",
			Help: "Repository operation failures (not-found excluded)",
		},
		[]string{"backend", "operation"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dobbysense_circuit_breaker_state",
			Help: "Breaker state: 0=closed, 1=half-open, 2=open",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_circuit_breaker_transitions_total",
			Help: "Breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dobbysense_circuit_breaker_requests_total",
			Help: "Requests through a breaker by result",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)
)

// RecordAPIRequest records one finished request.
func RecordAPIRequest(method, route, status string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// TrackActiveRequest adjusts the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordFoldIn records a fold-in outcome and its latency.
func RecordFoldIn(outcome string, dropped int, d time.Duration) {
	FoldInTotal.WithLabelValues(outcome).Inc()
	FoldInDuration.Observe(d.Seconds())
	if dropped > 0 {
		FoldInDroppedLabels.Add(float64(dropped))
	}
}

// RecordModelCache records a cache hit or miss.
func RecordModelCache(hit bool) {
	if hit {
		ModelCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	ModelCacheLookups.WithLabelValues("miss").Inc()
}

// RecordUpdate records an incremental update outcome.
func RecordUpdate(outcome string, d time.Duration) {
	UpdatesTotal.WithLabelValues(outcome).Inc()
	UpdateDuration.Observe(d.Seconds())
}

// RecordPublish records an event publish attempt.
func RecordPublish(topic, result string) {
	EventsPublished.WithLabelValues(topic, result).Inc()
}

// RecordStoreOperation records repository latency and, for real failures,
// an error.
func RecordStoreOperation(backend, operation string, d time.Duration, failed bool) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
	if failed {
		StoreOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordAuditEvent counts one audit event.
func RecordAuditEvent(eventType, result string) {
	AuditEvents.WithLabelValues(eventType, result).Inc()
}
