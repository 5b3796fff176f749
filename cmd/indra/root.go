// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moonstripe/indra/embed"
	"github.com/moonstripe/indra/indra"
	"github.com/moonstripe/indra/internal/config"
)

var (
	dbPath       string
	format       string
	noAutoCommit bool
	embedderName string
	modelName    string
	dimension    int
	authorName   string

	db *indra.Database
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "indra",
		Short:         "Indra is a content-addressed, versioned graph database of thoughts and edges.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return openDatabase()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeDatabase()
		},
	}

	root.PersistentFlags().StringVarP(&dbPath, "database", "d", "thoughts.indra", "database file path")
	root.PersistentFlags().StringVarP(&format, "format", "f", "json", "output format: json|text")
	root.PersistentFlags().BoolVar(&noAutoCommit, "no-auto-commit", false, "disable auto-commit after mutating operations")
	root.PersistentFlags().StringVar(&embedderName, "embedder", "", "embedder provider: mock|hf|openai|cohere|voyage")
	root.PersistentFlags().StringVar(&modelName, "model", "", "embedder model name (provider-specific default if empty)")
	root.PersistentFlags().IntVar(&dimension, "dimension", 0, "embedder vector dimension (provider-specific default if 0)")
	root.PersistentFlags().StringVar(&authorName, "author", "", "commit author name (INDRA_AUTHOR/$USER if empty)")

	root.AddCommand(
		newInitCmd(),
		newCreateCmd(),
		newGetCmd(),
		newUpdateCmd(),
		newDeleteCmd(),
		newListCmd(),
		newRelateCmd(),
		newUnrelateCmd(),
		newNeighborsCmd(),
		newSearchCmd(),
		newCommitCmd(),
		newLogCmd(),
		newBranchCmd(),
		newCheckoutCmd(),
		newBranchesCmd(),
		newDiffCmd(),
		newStatusCmd(),
		newVerifyCmd(),
	)
	return root
}

func openDatabase() error {
	opts := []indra.Option{indra.WithAutoCommit(!noAutoCommit)}

	if authorName != "" {
		opts = append(opts, indra.WithAuthor(authorName))
	}

	if embedderName != "" {
		e, err := buildEmbedder(embedderName, modelName, dimension)
		if err != nil {
			return err
		}
		opts = append(opts, indra.WithEmbedder(e))
	}

	opened, err := indra.Open(dbPath, opts...)
	if err != nil {
		return err
	}
	db = opened
	return nil
}

func closeDatabase() error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// providerDefault is a provider's (model, dimension) pair used when the
// corresponding flag is left unset.
type providerDefault struct {
	model string
	dim   int
}

var providerDefaults = map[string]providerDefault{
	"mock":   {model: "mock", dim: 8},
	"hf":     {model: "sentence-transformers/all-MiniLM-L6-v2", dim: 384},
	"openai": {model: "text-embedding-3-small", dim: 1536},
	"cohere": {model: "embed-english-v3.0", dim: 1024},
	"voyage": {model: "voyage-2", dim: 1024},
}

func buildEmbedder(provider, model string, dim int) (embed.Embedder, error) {
	def, ok := providerDefaults[provider]
	if !ok {
		return nil, fmt.Errorf("indra: unknown embedder provider %q", provider)
	}
	if model == "" {
		model = def.model
	}
	if dim == 0 {
		dim = def.dim
	}
	if dim < 0 {
		return nil, fmt.Errorf("indra: embedder dimension must be positive, got %d", dim)
	}

	if provider == "mock" {
		return embed.NewMock(dim), nil
	}

	creds := config.Load()
	if err := creds.RequireFor(provider); err != nil {
		return nil, err
	}

	switch provider {
	case "hf":
		return embed.NewHF(creds.HFToken, model, dim), nil
	case "openai":
		return embed.NewOpenAI(creds.OpenAIAPIKey, model, dim), nil
	case "cohere":
		return embed.NewCohere(creds.CohereAPIKey, model, dim), nil
	case "voyage":
		return embed.NewVoyage(creds.VoyageAPIKey, model, dim), nil
	default:
		return nil, fmt.Errorf("indra: unknown embedder provider %q", provider)
	}
}
