// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/moonstripe/indra/indra"
)

func TestParseDirection(t *testing.T) {
	cases := map[string]indra.Direction{
		"in":   indra.Incoming,
		"out":  indra.Outgoing,
		"both": indra.Both,
		"":     indra.Both,
	}
	for s, want := range cases {
		got, err := parseDirection(s)
		if err != nil {
			t.Fatalf("parseDirection(%q): %v", s, err)
		}
		if got != want {
			t.Fatalf("parseDirection(%q) = %v, want %v", s, got, want)
		}
	}

	if _, err := parseDirection("sideways"); err == nil {
		t.Fatal("expected an error for an invalid direction")
	}
}

func TestBuildEmbedderMockUsesDefaults(t *testing.T) {
	e, err := buildEmbedder("mock", "", 0)
	if err != nil {
		t.Fatalf("buildEmbedder: %v", err)
	}
	if e.Dimension() != providerDefaults["mock"].dim {
		t.Fatalf("dimension = %d, want %d", e.Dimension(), providerDefaults["mock"].dim)
	}
}

func TestBuildEmbedderUnknownProvider(t *testing.T) {
	if _, err := buildEmbedder("carrier-pigeon", "", 0); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestBuildEmbedderRemoteWithoutCredentialsFails(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := buildEmbedder("openai", "", 0); err == nil {
		t.Fatal("expected an error when OPENAI_API_KEY is unset")
	}
}
