// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// EventRouter is the lifecycle of an events.Router.
type EventRouter interface {
	Run(ctx context.Context) error
	Close() error
}

// EventRouterService runs the rating consumer router under supervision.
//
// A closed Watermill router cannot be run again, so a router that exits
// on its own is reported with suture.ErrDoNotRestart wrapped in the error
// rather than restarted into a failure loop.
type EventRouterService struct {
	router EventRouter
	name   string
}

// NewEventRouterService wraps router.
func NewEventRouterService(router EventRouter) *EventRouterService {
	return &EventRouterService{router: router, name: "event-router"}
}

// Serve implements suture.Service.
func (s *EventRouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		if closeErr := s.router.Close(); closeErr != nil {
			return fmt.Errorf("close event router: %w", closeErr)
		}
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("stopped unexpectedly")
	}
	return fmt.Errorf("event router: %w: %w", err, suture.ErrDoNotRestart)
}

func (s *EventRouterService) String() string {
	return s.name
}
