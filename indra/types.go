// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package indra

import (
	"time"

	"github.com/moonstripe/indra/hash"
)

// Thought is a node in the graph: text content plus its embedding vector.
type Thought struct {
	ID        string            `msgpack:"id"`
	Content   string            `msgpack:"content"`
	Embedding []float32         `msgpack:"embedding"`
	Model     string            `msgpack:"model"`
	Metadata  map[string]string `msgpack:"metadata"`
	CreatedAt time.Time         `msgpack:"created_at"`
	UpdatedAt time.Time         `msgpack:"updated_at"`
}

// Direction selects which edges neighbors/bfs/traversal consider relative
// to a thought.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Edge is a directed, typed, weighted relation between two thoughts,
// referenced by logical id (not content hash), so an edge "floats" to
// whichever version of a thought currently exists under that id.
type Edge struct {
	SourceID  string            `msgpack:"source_id"`
	TargetID  string            `msgpack:"target_id"`
	Type      string            `msgpack:"type"`
	Weight    float64           `msgpack:"weight"`
	Metadata  map[string]string `msgpack:"metadata"`
	CreatedAt time.Time         `msgpack:"created_at"`
}

// edgeKey is the deduplication key pinned by SPEC_FULL.md §5(b).
type edgeKey struct {
	Source string
	Target string
	Type   string
}

func keyOf(e Edge) edgeKey {
	return edgeKey{Source: e.SourceID, Target: e.TargetID, Type: e.Type}
}

// Snapshot is the content-addressed state of the whole graph at one
// commit: a trie root mapping thought id -> thought hash, and the set of
// edge hashes reachable at this point.
type Snapshot struct {
	TrieRoot hash.Hash   `msgpack:"trie_root"`
	Edges    []hash.Hash `msgpack:"edges"`
}

// Commit is one point in the commit graph: a snapshot plus ancestry and
// metadata. Ordering within a branch comes from the parent chain, never
// from Timestamp (spec.md §9).
type Commit struct {
	Snapshot  hash.Hash `msgpack:"snapshot"`
	Parent    hash.Hash `msgpack:"parent"` // hash.Zero for the initial commit
	Message   string    `msgpack:"message"`
	Author    string    `msgpack:"author"`
	Timestamp time.Time `msgpack:"timestamp"`
}

// NeighborEdge pairs a neighboring thought with the edge that connects it
// to the thought neighbors() was called on.
type NeighborEdge struct {
	Thought Thought
	Edge    Edge
	Dir     Direction
}

// SearchResult is one ranked hit from Search.
type SearchResult struct {
	Thought Thought
	Score   float64
}

// StatusReport is Database.Status()'s per-category change counts — the
// SUPPLEMENTED `status` feature modeled on the teacher's Tracker/
// SnapshotDiff.TotalChanges.
type StatusReport struct {
	ThoughtsCreated int
	ThoughtsUpdated int
	ThoughtsDeleted int
	EdgesAdded      int
	EdgesRemoved    int
}

// Diff is the result of comparing two commits (spec C10).
type Diff struct {
	ThoughtsAdded    []string
	ThoughtsRemoved  []string
	ThoughtsModified []ModifiedThought
	EdgesAdded       []Edge
	EdgesRemoved     []Edge
}

// ModifiedThought is one entry in Diff.ThoughtsModified.
type ModifiedThought struct {
	ID  string
	Old string
	New string
}
