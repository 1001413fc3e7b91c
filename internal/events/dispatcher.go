// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package events

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/dobbysense/internal/logging"
	"github.com/tomtom215/dobbysense/internal/metrics"
	"github.com/tomtom215/dobbysense/internal/sense"
)

var _ sense.EmbeddingListener = (*Dispatcher)(nil)

// DispatcherConfig tunes a Dispatcher.
type DispatcherConfig struct {
	RatingTopic    string
	EmbeddingTopic string

	// Rate and Burst bound rating events per second. Rate <= 0 disables
	// the limit.
	Rate  float64
	Burst int

	// PublishTimeout bounds one publish.
	PublishTimeout time.Duration
}

// Dispatcher publishes events without blocking the caller. Publishing runs
// on a context detached from the request, so a client disconnect does not
// cancel it.
type Dispatcher struct {
	pub     message.Publisher
	cfg     DispatcherConfig
	limiter *rate.Limiter
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

// NewDispatcher returns a Dispatcher publishing to pub.
func NewDispatcher(pub message.Publisher, cfg DispatcherConfig) *Dispatcher {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	d := &Dispatcher{
		pub:    pub,
		cfg:    cfg,
		logger: logging.WithComponent("dispatcher"),
	}
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	return d
}

// DispatchRating hands ev to the updater pipeline. Events over the rate
// budget are dropped and counted.
func (d *Dispatcher) DispatchRating(ctx context.Context, ev *sense.RatingEvent) {
	if d.limiter != nil && !d.limiter.Allow() {
		metrics.RecordPublish(d.cfg.RatingTopic, "dropped")
		logging.Ctx(ctx).Warn().
			Str("user_id", ev.UserID).
			Int64("item_id", ev.ItemID).
			Msg("Rating dispatch over budget, event dropped")
		return
	}
	msg, err := NewRatingMessage(ev)
	if err != nil {
		metrics.RecordPublish(d.cfg.RatingTopic, "error")
		d.logger.Error().Err(err).Msg("Failed to encode rating event")
		return
	}
	d.publishAsync(ctx, d.cfg.RatingTopic, msg)
}

// EmbeddingUpdated implements sense.EmbeddingListener.
func (d *Dispatcher) EmbeddingUpdated(ctx context.Context, e *sense.UserEmbedding, source string) {
	if d.cfg.EmbeddingTopic == "" {
		return
	}
	msg, err := newMessage("", eventTypeEmbeddingUpdated, &EmbeddingUpdated{
		UserID:    e.UserID,
		Version:   e.Version,
		Factors:   len(e.Embedding),
		Source:    source,
		UpdatedAt: e.UpdatedAt,
	})
	if err != nil {
		metrics.RecordPublish(d.cfg.EmbeddingTopic, "error")
		d.logger.Error().Err(err).Msg("Failed to encode embedding event")
		return
	}
	d.publishAsync(ctx, d.cfg.EmbeddingTopic, msg)
}

func (d *Dispatcher) publishAsync(ctx context.Context, topic string, msg *message.Message) {
	// Keep request-scoped values such as the request ID for logging.
	detached := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		pctx, cancel := context.WithTimeout(detached, d.cfg.PublishTimeout)
		defer cancel()
		msg.SetContext(pctx)

		if err := d.pub.Publish(topic, msg); err != nil {
			metrics.RecordPublish(topic, "error")
			logging.Ctx(detached).Error().Err(err).Str("topic", topic).Str("message_uuid", msg.UUID).Msg("Event publish failed")
			return
		}
		metrics.RecordPublish(topic, "ok")
	}()
}

// Wait blocks until in-flight publishes finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
