// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// DeduplicationTTL is how long a message UUID is remembered. Zero
	// disables deduplication.
	DeduplicationTTL time.Duration
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:     10 * time.Second,
		DeduplicationTTL: 10 * time.Minute,
	}
}

// Router wraps the Watermill Router with the middleware every DobbySense
// consumer shares.
type Router struct {
	router *message.Router
	logger watermill.LoggerAdapter
	dedup  *Deduplicator
}

// NewRouter creates a router. Middleware, outer to inner:
//  1. best-effort ack: handler errors are logged and the message acked
//  2. recoverer: panics become errors
//  3. deduplicator: repeated UUIDs are dropped (if enabled)
func NewRouter(cfg RouterConfig, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = NewLogger()
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{router: wmRouter, logger: logger}

	wmRouter.AddMiddleware(bestEffortAck(logger))
	wmRouter.AddMiddleware(middleware.Recoverer)

	if cfg.DeduplicationTTL > 0 {
		r.dedup = NewDeduplicator(cfg.DeduplicationTTL)
		dedup := middleware.Deduplicator{
			KeyFactory: func(msg *message.Message) (string, error) {
				return msg.UUID, nil
			},
			Repository: r.dedup,
		}
		wmRouter.AddMiddleware(dedup.Middleware)
	}

	return r, nil
}

// bestEffortAck swallows handler errors so the router acks instead of
// nacking; a nack would make gochannel and NATS queue groups redeliver.
func bestEffortAck(logger watermill.LoggerAdapter) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			out, err := h(msg)
			if err != nil {
				logger.Error("Event handler failed, message dropped", err, watermill.LogFields{
					"message_uuid": msg.UUID,
					"handler":      message.HandlerNameFromCtx(msg.Context()),
				})
				return nil, nil
			}
			return out, nil
		}
	}
}

// AddConsumerHandler registers a handler that doesn't produce output messages.
func (r *Router) AddConsumerHandler(
	name string,
	subscribeTopic string,
	subscriber message.Subscriber,
	handler message.NoPublishHandlerFunc,
) *message.Handler {
	return r.router.AddConsumerHandler(name, subscribeTopic, subscriber, handler)
}

// Run starts the router and blocks until ctx is canceled or Close is called.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel that closes when the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close stops the router, waiting up to CloseTimeout for handlers.
func (r *Router) Close() error {
	return r.router.Close()
}
