// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/dobbysense/internal/sense"
)

const (
	metadataContentType = "content_type"
	metadataEventType   = "event_type"

	eventTypeRating           = "rating"
	eventTypeEmbeddingUpdated = "embedding_updated"
)

// EmbeddingUpdated announces a persisted embedding. Downstream consumers
// refresh anything derived from it, such as cached recommendations.
type EmbeddingUpdated struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Version   int64     `json:"version"`
	Factors   int       `json:"factors"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// newMessage encodes payload as JSON under the given UUID, generating one
// when id is empty.
func newMessage(id, eventType string, payload any) (*message.Message, error) {
	if id == "" {
		id = watermill.NewUUID()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	msg := message.NewMessage(id, data)
	msg.Metadata.Set(metadataContentType, "application/json")
	msg.Metadata.Set(metadataEventType, eventType)
	return msg, nil
}

// NewRatingMessage wraps ev; the message UUID is the event ID so
// redeliveries deduplicate.
func NewRatingMessage(ev *sense.RatingEvent) (*message.Message, error) {
	if ev.EventID == "" {
		ev.EventID = watermill.NewUUID()
	}
	return newMessage(ev.EventID, eventTypeRating, ev)
}

// DecodeRating parses a rating message.
func DecodeRating(msg *message.Message) (*sense.RatingEvent, error) {
	var ev sense.RatingEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode rating event %s: %w", msg.UUID, err)
	}
	if ev.EventID == "" {
		ev.EventID = msg.UUID
	}
	return &ev, nil
}

// DecodeEmbeddingUpdated parses an embedding notification.
func DecodeEmbeddingUpdated(msg *message.Message) (*EmbeddingUpdated, error) {
	var ev EmbeddingUpdated
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode embedding event %s: %w", msg.UUID, err)
	}
	return &ev, nil
}
