// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package events

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/dobbysense/internal/sense"
)

// RatingHandler applies each rating message with u.
func RatingHandler(u *sense.Updater) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ev, err := DecodeRating(msg)
		if err != nil {
			return err
		}
		_, err = u.Apply(msg.Context(), ev)
		return err
	}
}
