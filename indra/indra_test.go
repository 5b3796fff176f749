// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package indra

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/moonstripe/indra/embed"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.indra")
}

func openTestDB(t *testing.T, opts ...Option) *Database {
	t.Helper()
	db, err := Open(tempDBPath(t), opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInitAndSingleCommit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateThought(ctx, "a", "hello", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := db.Log("")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 commit after auto-commit, got %d", len(entries))
	}

	got, err := db.GetThought("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "hello" {
		t.Fatalf("content = %q, want hello", got.Content)
	}
}

func TestUpdateNoopOnUnchangedContent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t1, err := db.CreateThought(ctx, "a", "hello", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t2, err := db.UpdateThought(ctx, "a", "hello", nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !t1.UpdatedAt.Equal(t2.UpdatedAt) {
		t.Fatalf("expected unchanged UpdatedAt on no-op update, got %v vs %v", t1.UpdatedAt, t2.UpdatedAt)
	}

	entries, err := db.Log("")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("no-op update should not create a new commit, got %d commits", len(entries))
	}
}

func TestBranchIsolation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateThought(ctx, "a", "on main", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Branch("feature"); err != nil {
		t.Fatalf("branch: %v", err)
	}
	if err := db.Checkout("feature"); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := db.CreateThought(ctx, "b", "on feature", nil); err != nil {
		t.Fatalf("create on feature: %v", err)
	}

	if err := db.Checkout("main"); err != nil {
		t.Fatalf("checkout main: %v", err)
	}
	if _, err := db.GetThought("b"); err == nil {
		t.Fatalf("expected %q to not exist on main", "b")
	}

	if err := db.Checkout("feature"); err != nil {
		t.Fatalf("checkout feature: %v", err)
	}
	if _, err := db.GetThought("b"); err != nil {
		t.Fatalf("expected %q to exist on feature: %v", "b", err)
	}
}

func TestCheckoutRefusesDirtyWorkingSet(t *testing.T) {
	db := openTestDB(t, WithAutoCommit(false))
	ctx := context.Background()

	if _, err := db.CreateThought(ctx, "a", "uncommitted", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Branch("feature"); err != nil {
		t.Fatalf("branch: %v", err)
	}
	if err := db.Checkout("feature"); err == nil {
		t.Fatalf("expected checkout to refuse a dirty working set")
	}
}

func TestRelateAndTraversal(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := db.CreateThought(ctx, id, id, nil); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := db.Relate("a", "b", "related", 1.0, nil); err != nil {
		t.Fatalf("relate a->b: %v", err)
	}
	if err := db.Relate("b", "c", "related", 1.0, nil); err != nil {
		t.Fatalf("relate b->c: %v", err)
	}

	neighbors, err := db.Neighbors("a", Outgoing)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].Thought.ID != "b" {
		t.Fatalf("expected a -> b, got %+v", neighbors)
	}

	path, err := db.ShortestPath("a", "c")
	if err != nil {
		t.Fatalf("shortest path: %v", err)
	}
	if len(path) != 3 || path[0].ID != "a" || path[2].ID != "c" {
		t.Fatalf("unexpected path: %+v", path)
	}
}

func TestRelateMissingEndpointFails(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateThought(ctx, "a", "a", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Relate("a", "missing", "related", 1.0, nil); KindOf(err) != KindEdgeEndpointMissing {
		t.Fatalf("expected EdgeEndpointMissing, got %v", err)
	}
}

func TestUnrelateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateThought(ctx, "a", "a", nil); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := db.CreateThought(ctx, "b", "b", nil); err != nil {
		t.Fatalf("create b: %v", err)
	}
	if err := db.Unrelate("a", "b", "related"); err != nil {
		t.Fatalf("unrelate on absent edge should be a no-op: %v", err)
	}
	if err := db.Relate("a", "b", "related", 1.0, nil); err != nil {
		t.Fatalf("relate: %v", err)
	}
	if err := db.Unrelate("a", "b", "related"); err != nil {
		t.Fatalf("unrelate: %v", err)
	}
	if err := db.Unrelate("a", "b", "related"); err != nil {
		t.Fatalf("second unrelate should still be a no-op: %v", err)
	}
}

func TestSearchOrdersByCosineSimilarity(t *testing.T) {
	db := openTestDB(t, WithEmbedder(embed.NewMock(16)))
	ctx := context.Background()

	if _, err := db.CreateThought(ctx, "a", "the quick brown fox", nil); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := db.CreateThought(ctx, "b", "the quick brown fox", nil); err != nil {
		t.Fatalf("create b: %v", err)
	}
	if _, err := db.CreateThought(ctx, "c", "something entirely different", nil); err != nil {
		t.Fatalf("create c: %v", err)
	}

	results, err := db.Search(ctx, "the quick brown fox", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Thought.ID != "a" && results[0].Thought.ID != "b" {
		t.Fatalf("expected an exact-match id first, got %s", results[0].Thought.ID)
	}
}

func TestSearchRequiresEmbedder(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Search(context.Background(), "q", 5); KindOf(err) != KindNoEmbedder {
		t.Fatalf("expected NoEmbedder, got %v", err)
	}
}

func TestDiffSelfIsEmpty(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateThought(ctx, "a", "a", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	d, err := db.Diff("main", "main")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(d.ThoughtsAdded) != 0 || len(d.ThoughtsRemoved) != 0 || len(d.ThoughtsModified) != 0 {
		t.Fatalf("expected empty diff, got %+v", d)
	}
}

func TestDiffIsInvertedBySwappingArgs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateThought(ctx, "a", "a", nil); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := db.Branch("before"); err != nil {
		t.Fatalf("branch before: %v", err)
	}
	if _, err := db.CreateThought(ctx, "b", "b", nil); err != nil {
		t.Fatalf("create b: %v", err)
	}

	forward, err := db.Diff("before", "main")
	if err != nil {
		t.Fatalf("diff forward: %v", err)
	}
	backward, err := db.Diff("main", "before")
	if err != nil {
		t.Fatalf("diff backward: %v", err)
	}

	if len(forward.ThoughtsAdded) != 1 || forward.ThoughtsAdded[0] != "b" {
		t.Fatalf("expected b added going forward, got %+v", forward.ThoughtsAdded)
	}
	if len(backward.ThoughtsRemoved) != 1 || backward.ThoughtsRemoved[0] != "b" {
		t.Fatalf("expected b removed going backward, got %+v", backward.ThoughtsRemoved)
	}
}

func TestVerifyPassesOnHealthyDatabase(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateThought(ctx, "a", "a", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Relate("a", "a", "self", 1.0, nil); err != nil {
		t.Fatalf("relate: %v", err)
	}
	if err := db.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestThoughtAndEdgeMetadataRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t1, err := db.CreateThought(ctx, "a", "hello", map[string]string{"source": "test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if t1.Metadata["source"] != "test" {
		t.Fatalf("expected metadata to round-trip through create, got %+v", t1.Metadata)
	}

	got, err := db.GetThought("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Metadata["source"] != "test" {
		t.Fatalf("expected metadata to persist through commit, got %+v", got.Metadata)
	}

	if _, err := db.CreateThought(ctx, "b", "b", nil); err != nil {
		t.Fatalf("create b: %v", err)
	}
	if err := db.Relate("a", "b", "related", 1.0, map[string]string{"reason": "test"}); err != nil {
		t.Fatalf("relate: %v", err)
	}
	neighbors, err := db.Neighbors("a", Outgoing)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].Edge.Metadata["reason"] != "test" {
		t.Fatalf("expected edge metadata to round-trip, got %+v", neighbors)
	}
}

func TestUpdateThoughtChangingOnlyMetadataIsNotANoop(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t1, err := db.CreateThought(ctx, "a", "hello", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t2, err := db.UpdateThought(ctx, "a", "hello", map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if t2.Metadata["k"] != "v" {
		t.Fatalf("expected metadata to be updated, got %+v", t2.Metadata)
	}
	if t1.UpdatedAt.Equal(t2.UpdatedAt) {
		t.Fatalf("expected UpdatedAt to change when metadata changes")
	}
}

// failingEmbedder returns a vector shorter than its declared Dimension, to
// exercise the DimensionMismatch error path distinctly from a generic
// embedder failure.
type failingEmbedder struct{ dim int }

func (f failingEmbedder) Dimension() int    { return f.dim }
func (f failingEmbedder) ModelName() string { return "failing" }
func (f failingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, f.dim-1), nil
}

func TestCreateThoughtSurfacesDimensionMismatch(t *testing.T) {
	db := openTestDB(t, WithEmbedder(failingEmbedder{dim: 8}))
	ctx := context.Background()

	if _, err := db.CreateThought(ctx, "a", "hello", nil); KindOf(err) != KindDimensionMismatch {
		t.Fatalf("expected DimensionMismatch, got %v", err)
	}
}

func TestStructuralSharingBound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		id := string(rune('a' + i%26))
		if _, err := db.CreateThought(ctx, id+string(rune('0'+i/26)), "content", nil); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	before := db.store.Stats()
	if _, err := db.CreateThought(ctx, "extra", "one more", nil); err != nil {
		t.Fatalf("create extra: %v", err)
	}
	after := db.store.Stats()

	if after.ObjectCount-before.ObjectCount > 40 {
		t.Fatalf("expected a bounded number of new objects for one insert, got %d", after.ObjectCount-before.ObjectCount)
	}
}
