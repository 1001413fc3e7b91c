// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

import (
	"fmt"
	"math"
	"time"
)

// Rating bounds accepted from clients.
const (
	MinRating = 1
	MaxRating = 10
)

// RatingEvent is published after a rating is stored and consumed by the
// Updater.
type RatingEvent struct {
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	ItemType ItemType  `json:"item_type"`
	ItemID   int64     `json:"item_id"`
	Rating   float64   `json:"rating"`
	RatedAt  time.Time `json:"rated_at"`
}

// Validate checks the fields the updater relies on.
func (e *RatingEvent) Validate() error {
	switch {
	case e.UserID == "":
		return fmt.Errorf("%w: missing user id", ErrInvalidRating)
	case !e.ItemType.Valid():
		return fmt.Errorf("%w: unknown item type %q", ErrInvalidRating, e.ItemType)
	case e.ItemID <= 0:
		return fmt.Errorf("%w: item id must be positive", ErrInvalidRating)
	case math.IsNaN(e.Rating) || e.Rating <= 0 || e.Rating > MaxRating:
		return fmt.Errorf("%w: rating %v out of range", ErrInvalidRating, e.Rating)
	}
	return nil
}

// Score is the rating on the 0-10 scale.
func (e *RatingEvent) Score() float64 {
	return NormalizeScore(e.Rating)
}

// NormalizeScore maps a rating onto 0-10. Values up to 5 are read as a
// five-star rating and doubled.
func NormalizeScore(r float64) float64 {
	if r <= 5 {
		return r * 2
	}
	return r
}

// ValidateRating checks a client-supplied rating.
func ValidateRating(r float64) error {
	if math.IsNaN(r) || r < MinRating || r > MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidRating, MinRating, MaxRating)
	}
	return nil
}
