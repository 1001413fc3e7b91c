// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSlogHandlerFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(NewTestLogger(&buf)))

	logger.With("service", "http-server").
		WithGroup("restart").
		Info("service restarted",
			"attempt", 3,
			"backoff", 15*time.Second,
			"err", errors.New("boom"),
			slog.Group("tree", "name", "api-layer"))

	out := buf.String()
	for _, want := range []string{
		`"service":"http-server"`,
		`"restart.attempt":3`,
		`"restart.err":"boom"`,
		`"restart.tree.name":"api-layer"`,
		`"message":"service restarted"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(NewTestLogger(&buf)))
	logger.Error("failed")
	logger.Warn("careful")

	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("levels not mapped: %s", out)
	}
}
