// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/dobbysense/internal/config"
	"github.com/tomtom215/dobbysense/internal/repository"
)

// opener returns the repository a command works on.
type opener func(cmd *cobra.Command) (repository.Repository, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "sensectl",
		Short:         "Administer a DobbySense repository",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("backend", envOr("DB_BACKEND", config.BackendDuckDB), "storage backend: duckdb or badger")
	root.PersistentFlags().String("db-path", envOr("DUCKDB_PATH", "/data/dobbysense.duckdb"), "DuckDB file")
	root.PersistentFlags().String("badger-path", envOr("BADGER_PATH", ""), "Badger directory")

	root.AddCommand(
		importLayerCmd(open),
		showLayerCmd(open),
		importItemsCmd(open),
		foldInCmd(open),
		tokenCmd(),
	)
	return root
}

// openRepository opens the backend named by the persistent flags.
func openRepository(cmd *cobra.Command) (repository.Repository, error) {
	flags := cmd.Flags()
	backend, _ := flags.GetString("backend")
	path, _ := flags.GetString("db-path")
	badgerPath, _ := flags.GetString("badger-path")

	repo, err := repository.Open(&config.DatabaseConfig{
		Backend:    backend,
		Path:       path,
		MaxMemory:  "512MB",
		BadgerPath: badgerPath,
	})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// readInput reads a file argument, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
