// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package audit

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/dobbysense/internal/logging"
	"github.com/tomtom215/dobbysense/internal/metrics"
)

// Config holds configuration for the audit logger.
type Config struct {
	Enabled bool

	// BufferSize is the async write buffer. Events beyond it are dropped.
	BufferSize int

	// LogToStdout also writes each event through the application logger.
	LogToStdout bool

	// SaveTimeout bounds one Store.Save.
	SaveTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		BufferSize:  1000,
		SaveTimeout: 5 * time.Second,
	}
}

// Logger writes events to a Store from a background goroutine.
type Logger struct {
	config    *Config
	store     Store
	eventChan chan *Event
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger starts the writer goroutine. Call Close to flush and stop it.
func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.SaveTimeout <= 0 {
		config.SaveTimeout = DefaultConfig().SaveTimeout
	}

	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.config.LogToStdout {
		if data, err := json.Marshal(event); err == nil {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}
	if l.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.config.SaveTimeout)
	defer cancel()
	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
		metrics.RecordAuditEvent(string(event.Type), "error")
		return
	}
	metrics.RecordAuditEvent(string(event.Type), "stored")
}

// Log queues event. ID, Timestamp, Severity and RequestID are filled in
// when unset. Log never blocks.
func (l *Logger) Log(ctx context.Context, event *Event) {
	if l == nil || !l.config.Enabled {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
		if event.Outcome == OutcomeFailure {
			event.Severity = SeverityWarning
		}
	}
	if event.RequestID == "" {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}

	select {
	case <-l.stopChan:
		metrics.RecordAuditEvent(string(event.Type), "dropped")
		return
	default:
	}
	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Msg("Audit event buffer full, dropping event")
		metrics.RecordAuditEvent(string(event.Type), "dropped")
	}
}

// Query reads from the underlying store.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.Query(ctx, filter)
}

// Close flushes queued events, stops the writer and closes the store when
// it is an io.Closer. Safe to call twice; only the first call reports an
// error.
func (l *Logger) Close() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
		if c, ok := l.store.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

// FromRequest returns an event of type t with the source address and
// request ID taken from r.
func FromRequest(r *http.Request, t EventType) *Event {
	return &Event{
		Type:      t,
		SourceIP:  r.RemoteAddr,
		RequestID: logging.RequestIDFromContext(r.Context()),
		Action:    r.Method,
	}
}

// WithMetadata sets e.Metadata to v encoded as JSON and returns e.
func (e *Event) WithMetadata(v any) *Event {
	if data, err := json.Marshal(v); err == nil {
		e.Metadata = data
	}
	return e
}
