// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

// Command sensectl administers a DobbySense repository directly: it
// publishes genre layers, loads item vectors, runs fold-ins and mints
// session tokens for testing.
//
//	sensectl import-layer layer.json
//	sensectl show-layer
//	sensectl import-items items.json
//	sensectl fold-in --user u1 --persist Action Horror
//	sensectl token --user u1 --role admin
package main

import (
	"fmt"
	"os"

	"github.com/tomtom215/dobbysense/internal/logging"
)

func main() {
	logging.Init(logging.Config{Level: "warn", Format: "console", Output: os.Stderr})

	if err := newRootCmd(openRepository).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
