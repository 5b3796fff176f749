// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package embed

import (
	"context"
	"math"

	"github.com/zeebo/blake3"
)

// Mock is a deterministic, dependency-free Embedder for tests and CLI
// offline use. It derives a pseudo-embedding from the BLAKE3 hash of the
// input text, so identical text always produces an identical vector and
// distinct text produces (with overwhelming probability) distinct
// vectors, without ever calling a real provider.
type Mock struct {
	Dim int
}

// NewMock returns a Mock embedder with the given dimension. dim must be
// positive; callers validate this at configuration time (InvalidArgument).
func NewMock(dim int) *Mock {
	return &Mock{Dim: dim}
}

func (m *Mock) Dimension() int    { return m.Dim }
func (m *Mock) ModelName() string { return "mock" }

func (m *Mock) Embed(_ context.Context, text string) ([]float32, error) {
	digest := blake3.Sum256([]byte(text))
	vec := make([]float32, m.Dim)
	for i := range vec {
		b := digest[i%len(digest)]
		// Map a hash byte to roughly [-1, 1] so cosine similarity behaves
		// sensibly rather than every vector landing in the positive orthant.
		vec[i] = float32(int(b)-128) / 128.0
	}
	normalize(vec)
	return vec, nil
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
