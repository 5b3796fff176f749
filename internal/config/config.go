// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package config loads embedder provider credentials from the process
// environment. It is the only place environment variables are read
// (spec.md §6); the CLI and Database never call os.Getenv directly.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EmbedderCredentials holds the API credentials for every remote
// embedder provider Indra supports. Only the fields relevant to the
// provider actually selected (--embedder) are validated as required.
type EmbedderCredentials struct {
	HFHome  string
	HFToken string

	OpenAIAPIKey string
	CohereAPIKey string
	VoyageAPIKey string
}

// Load reads embedder credentials from the environment, best-effort
// loading a .env file first so local development doesn't require
// exporting variables by hand.
func Load() EmbedderCredentials {
	_ = godotenv.Load(".env", "../.env", "../../.env")

	return EmbedderCredentials{
		HFHome:       strings.TrimSpace(os.Getenv("HF_HOME")),
		HFToken:      strings.TrimSpace(os.Getenv("HF_TOKEN")),
		OpenAIAPIKey: strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		CohereAPIKey: strings.TrimSpace(os.Getenv("COHERE_API_KEY")),
		VoyageAPIKey: strings.TrimSpace(os.Getenv("VOYAGE_API_KEY")),
	}
}

// Author resolves the name recorded on commits: INDRA_AUTHOR if set,
// else the process owner's username, else "unknown".
func Author() string {
	if name := strings.TrimSpace(os.Getenv("INDRA_AUTHOR")); name != "" {
		return name
	}
	if name := strings.TrimSpace(os.Getenv("USER")); name != "" {
		return name
	}
	if name := strings.TrimSpace(os.Getenv("USERNAME")); name != "" {
		return name
	}
	return "unknown"
}

// RequireFor validates that the credentials needed by provider are
// present, returning an error naming the missing environment variable so
// a misconfigured embedder fails at open/CLI-startup rather than mid
// operation (spec.md's configuration ambient-stack requirement).
func (c EmbedderCredentials) RequireFor(provider string) error {
	var key, value string
	switch provider {
	case "mock":
		return nil
	case "hf":
		key, value = "HF_TOKEN", c.HFToken
	case "openai":
		key, value = "OPENAI_API_KEY", c.OpenAIAPIKey
	case "cohere":
		key, value = "COHERE_API_KEY", c.CohereAPIKey
	case "voyage":
		key, value = "VOYAGE_API_KEY", c.VoyageAPIKey
	default:
		return fmt.Errorf("config: unknown embedder provider %q", provider)
	}
	if value == "" {
		return fmt.Errorf("config: missing required env var %s for embedder %q", key, provider)
	}
	return nil
}

