// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package indra

import (
	"context"
	"math"
	"sort"

	"github.com/moonstripe/indra/embed"
)

// Search embeds query and returns the k thoughts whose embeddings are
// closest by cosine similarity, over the merged working-set+HEAD view
// (spec C9). Requires an attached embedder. Thoughts whose stored
// embedding length doesn't match the embedder's dimension are skipped
// with a warning rather than failing the whole search. Ties break by id
// ascending so results are deterministic (spec.md §8 property 5).
func (d *Database) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if k <= 0 {
		return nil, nil
	}
	if d.embedder == nil {
		return nil, newErr(KindNoEmbedder, nil, "search requires an attached embedder")
	}

	queryVec, err := embed.EmbedOne(ctx, d.embedder, query)
	if err != nil {
		return nil, newErr(KindEmbedderFailed, err, "embed query")
	}

	ids, err := d.mergedThoughtIDsLocked()
	if err != nil {
		return nil, err
	}

	dim := d.embedder.Dimension()
	results := make([]SearchResult, 0, len(ids))
	for _, id := range ids {
		t, ok, err := d.resolveThoughtLocked(id)
		if err != nil {
			return nil, err
		}
		if !ok || len(t.Embedding) == 0 {
			continue
		}
		if len(t.Embedding) != dim {
			d.logger.Warn("indra: skipping thought with mismatched embedding dimension",
				"id", id, "got", len(t.Embedding), "want", dim)
			continue
		}
		score := cosineSimilarity(queryVec, t.Embedding)
		results = append(results, SearchResult{Thought: t, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Thought.ID < results[j].Thought.ID
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// if either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
