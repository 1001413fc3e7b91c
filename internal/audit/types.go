// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes an audit event.
type EventType string

const (
	TypeLayerPublished EventType = "layer.published"
	TypeLayerRejected  EventType = "layer.rejected"
	TypeAuthzDenied    EventType = "authz.denied"
)

// Severity of an event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Outcome is success or failure of the audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audit record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Outcome   Outcome   `json:"outcome"`

	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role,omitempty"`
	SourceIP  string `json:"source_ip,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Resource is what was acted on: a layer name or a request path.
	Resource    string          `json:"resource"`
	Action      string          `json:"action,omitempty"`
	Description string          `json:"description,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error

	// Query returns matching events, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
}

// QueryFilter narrows a Query. Zero fields match everything.
type QueryFilter struct {
	Types   []EventType
	ActorID string
	Since   time.Time
	Limit   int
}

// DefaultQueryLimit caps Query results when Limit is unset.
const DefaultQueryLimit = 100

func (f *QueryFilter) matches(e *Event) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if e.Type == t {
			return true
		}
	}
	return false
}
