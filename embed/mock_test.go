// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package embed

import (
	"context"
	"testing"
)

func TestMockDeterministic(t *testing.T) {
	m := NewMock(16)
	ctx := context.Background()

	v1, err := m.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	v2, err := m.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(v1) != 16 {
		t.Fatalf("len(v1) = %d, want 16", len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("expected identical embeddings for identical text at %d: %v vs %v", i, v1[i], v2[i])
		}
	}
}

func TestMockDistinctText(t *testing.T) {
	m := NewMock(16)
	ctx := context.Background()

	v1, _ := m.Embed(ctx, "alpha")
	v2, _ := m.Embed(ctx, "beta")

	same := true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected distinct text to produce distinct embeddings")
	}
}

func TestEmbedOneValidatesDimension(t *testing.T) {
	m := NewMock(8)
	if _, err := EmbedOne(context.Background(), m, "x"); err != nil {
		t.Fatal(err)
	}
}
