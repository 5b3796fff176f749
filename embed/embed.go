// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package embed defines Indra's embedder capability contract and a set of
// concrete providers. The core never inspects an embedder's
// implementation; it only calls Dimension/ModelName/Embed (and
// BatchEmbedder.EmbedBatch when available) and validates returned vector
// lengths.
package embed

import (
	"context"
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a provider's response vector
// length doesn't match its own advertised Dimension().
var ErrDimensionMismatch = errors.New("embed: dimension mismatch")

// Embedder is the external collaborator contract spec.md's "Embedder
// contract" section describes. Implementations may be local (in-process
// inference, a mock) or remote (HTTP API providers); the core treats them
// uniformly.
type Embedder interface {
	// Dimension is the fixed length of every vector Embed/EmbedBatch returns.
	Dimension() int
	// ModelName identifies the concrete model/provider. The core records it
	// on each embedded Thought's Model field and never parses it.
	ModelName() string
	// Embed returns the embedding vector for text. The returned slice has
	// length Dimension(); implementations that cannot guarantee this must
	// return ErrDimensionMismatch rather than a short/long vector.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is an optional capability: a provider that can embed many
// texts more efficiently than one call per text. The core uses it only
// when an Embedder also implements it.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds text with e, using EmbedBatch if e supports it (a batch
// of one is still routed through the provider's batch path so callers get
// identical behavior regardless of which capability the concrete provider
// exposes) and validating the returned vector's length against e's
// advertised dimension.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	var vec []float32
	var err error
	if be, ok := e.(BatchEmbedder); ok {
		var vecs [][]float32
		vecs, err = be.EmbedBatch(ctx, []string{text})
		if err == nil {
			if len(vecs) != 1 {
				return nil, fmt.Errorf("embed: batch of 1 returned %d vectors", len(vecs))
			}
			vec = vecs[0]
		}
	} else {
		vec, err = e.Embed(ctx, text)
	}
	if err != nil {
		return nil, err
	}
	if len(vec) != e.Dimension() {
		return nil, fmt.Errorf("%w: %s returned length %d, want %d", ErrDimensionMismatch, e.ModelName(), len(vec), e.Dimension())
	}
	return vec, nil
}
