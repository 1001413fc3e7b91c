// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/dobbysense/internal/auth"
	"github.com/tomtom215/dobbysense/internal/config"
	"github.com/tomtom215/dobbysense/internal/models"
	"github.com/tomtom215/dobbysense/internal/sense"
	"github.com/tomtom215/dobbysense/internal/validation"
)

func importLayerCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import-layer <file|->",
		Short: "Publish a genre layer from JSON",
		Long: "Publish a genre layer. The file holds {name, genre_names, weight, bias}\n" +
			"with weight shaped factors x genres. The new layer becomes the latest.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var req models.GenreLayerRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("decode layer: %w", err)
			}
			if verr := validation.ValidateStruct(&req); verr != nil {
				return fmt.Errorf("invalid layer: %w", verr)
			}

			repo, err := open(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			stored, err := sense.NewLayerPublisher(repo, nil).Publish(cmd.Context(), req.ToModel())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published layer %q (id %d): %d factors x %d genres\n",
				stored.Name, stored.ID, stored.Factors(), stored.Genres())
			return nil
		},
	}
}

func showLayerCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-layer",
		Short: "Print the latest genre layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := open(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			m, err := repo.LatestModel(cmd.Context())
			if errors.Is(err, sense.ErrNotFound) {
				return errors.New("no genre layer found")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(out, m)
			}
			fmt.Fprintf(out, "name:     %s\n", m.Name)
			fmt.Fprintf(out, "id:       %d\n", m.ID)
			fmt.Fprintf(out, "created:  %s\n", m.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "factors:  %d\n", m.Factors())
			fmt.Fprintf(out, "bias:     %t\n", m.HasBias())
			fmt.Fprintf(out, "genres:   %s\n", strings.Join(m.GenreLabels, ", "))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print the full layer as JSON")
	return cmd
}

func importItemsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import-items <file|->",
		Short: "Load movie and show vectors from a JSON array",
		Long: "Load item vectors used by the rating updater. Each element is\n" +
			"{item_type: movie|show, item_id, embedding, genres}.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var items []sense.ItemSignal
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("decode items: %w", err)
			}
			for i := range items {
				if err := checkItem(&items[i]); err != nil {
					return fmt.Errorf("item %d: %w", i, err)
				}
			}

			repo, err := open(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			for i := range items {
				if err := repo.UpsertItemSignal(cmd.Context(), &items[i]); err != nil {
					return fmt.Errorf("store %s %d: %w", items[i].ItemType, items[i].ItemID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d items\n", len(items))
			return nil
		},
	}
}

func checkItem(it *sense.ItemSignal) error {
	switch {
	case !it.ItemType.Valid():
		return fmt.Errorf("unknown item_type %q", it.ItemType)
	case it.ItemID <= 0:
		return errors.New("item_id must be positive")
	case len(it.Embedding) == 0:
		return errors.New("embedding is required")
	}
	sense.SanitizeVector(it.Embedding)
	return nil
}

// foldInOutput is what fold-in prints.
type foldInOutput struct {
	Layer     string               `json:"layer"`
	Embedding []float64            `json:"embedding"`
	Matched   []string             `json:"matched,omitempty"`
	Dropped   []string             `json:"dropped,omitempty"`
	DB        *sense.UserEmbedding `json:"db,omitempty"`
}

func foldInCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fold-in <genre>...",
		Short: "Fold genres through the latest layer",
		Long: "Compute a taste embedding from genre labels. With --persist the\n" +
			"result is stored for --user exactly as the API would.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			persist, _ := cmd.Flags().GetBool("persist")
			if persist && userID == "" {
				return errors.New("--persist needs --user")
			}

			repo, err := open(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := cmd.Context()
			var out foldInOutput
			if persist {
				res, err := sense.NewService(repo, repo, sense.WithPreferences(repo)).FoldIn(ctx, userID, args)
				if err != nil {
					return err
				}
				out = foldInOutput{res.ModelName, res.Embedding, res.Matched, res.Dropped, res.Row}
			} else {
				m, err := repo.LatestModel(ctx)
				if err != nil {
					return fmt.Errorf("load genre layer: %w", err)
				}
				idxs, dropped := sense.DefaultLabelResolver().Resolve(m, args)
				vec, err := sense.FoldIn(m, idxs)
				if err != nil {
					return err
				}
				out = foldInOutput{Layer: m.Name, Embedding: vec, Dropped: dropped}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().String("user", "", "user id to store the embedding for")
	cmd.Flags().Bool("persist", false, "store the embedding")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			userID, _ := flags.GetString("user")
			role, _ := flags.GetString("role")
			ttl, _ := flags.GetDuration("ttl")
			secret, _ := flags.GetString("secret")
			issuer, _ := flags.GetString("issuer")
			if userID == "" {
				return errors.New("--user is required")
			}

			jm, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: secret, TokenIssuer: issuer})
			if err != nil {
				return err
			}
			tok, err := jm.GenerateToken(userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("user", "", "subject (user id)")
	cmd.Flags().String("role", "", "role claim, e.g. admin")
	cmd.Flags().Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
	cmd.Flags().String("secret", envOr("JWT_SECRET", ""), "HS256 signing secret")
	cmd.Flags().String("issuer", envOr("TOKEN_ISSUER", ""), "iss claim")
	return cmd
}
