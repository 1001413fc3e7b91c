// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package services

import (
	"context"
	"time"

	"github.com/tomtom215/dobbysense/internal/logging"
)

// Drainer waits for in-flight background work.
type Drainer interface {
	Wait(ctx context.Context) error
}

// DrainService idles until shutdown, then waits up to its timeout for the
// drainer. Registering an events.Dispatcher with it keeps rating events
// published after the last response from being lost on shutdown.
type DrainService struct {
	drainer Drainer
	timeout time.Duration
	name    string
}

// NewDrainService wraps drainer. A non-positive timeout means 10 seconds.
func NewDrainService(name string, drainer Drainer, timeout time.Duration) *DrainService {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &DrainService{drainer: drainer, timeout: timeout, name: name}
}

// Serve implements suture.Service.
func (s *DrainService) Serve(ctx context.Context) error {
	<-ctx.Done()

	waitCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.drainer.Wait(waitCtx); err != nil {
		logger := logging.WithComponent(s.name)
		logger.Warn().Err(err).Msg("drain incomplete")
	}
	return ctx.Err()
}

func (s *DrainService) String() string {
	return s.name
}
