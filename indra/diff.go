// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package indra

import (
	"sort"

	"github.com/moonstripe/indra/hash"
	"github.com/moonstripe/indra/trie"
)

// Diff compares the snapshots reachable from fromRef and toRef (each a
// branch name or raw commit hash) and reports what changed (spec C10). It
// is a pure function of the two resolved commit hashes: diffing the same
// commit against itself always yields an empty Diff, and swapping the
// arguments swaps added/removed (spec.md §8 properties 7-8).
func (d *Database) Diff(fromRef, toRef string) (Diff, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fromCommit, err := d.resolveRefLocked(fromRef)
	if err != nil {
		return Diff{}, err
	}
	toCommit, err := d.resolveRefLocked(toRef)
	if err != nil {
		return Diff{}, err
	}

	fromSnap, err := d.snapshotAtLocked(fromCommit)
	if err != nil {
		return Diff{}, err
	}
	toSnap, err := d.snapshotAtLocked(toCommit)
	if err != nil {
		return Diff{}, err
	}

	var diff Diff

	fromThoughts, err := d.snapshotThoughtsLocked(fromSnap)
	if err != nil {
		return Diff{}, err
	}
	toThoughts, err := d.snapshotThoughtsLocked(toSnap)
	if err != nil {
		return Diff{}, err
	}

	for id, t := range toThoughts {
		old, existed := fromThoughts[id]
		if !existed {
			diff.ThoughtsAdded = append(diff.ThoughtsAdded, id)
			continue
		}
		if old.Content != t.Content {
			diff.ThoughtsModified = append(diff.ThoughtsModified, ModifiedThought{ID: id, Old: old.Content, New: t.Content})
		}
	}
	for id := range fromThoughts {
		if _, stillPresent := toThoughts[id]; !stillPresent {
			diff.ThoughtsRemoved = append(diff.ThoughtsRemoved, id)
		}
	}
	sortStrings(diff.ThoughtsAdded)
	sortStrings(diff.ThoughtsRemoved)
	sort.Slice(diff.ThoughtsModified, func(i, j int) bool {
		return diff.ThoughtsModified[i].ID < diff.ThoughtsModified[j].ID
	})

	fromEdges, err := d.snapshotEdgesLocked(fromSnap)
	if err != nil {
		return Diff{}, err
	}
	toEdges, err := d.snapshotEdgesLocked(toSnap)
	if err != nil {
		return Diff{}, err
	}

	for key, e := range toEdges {
		if _, existed := fromEdges[key]; !existed {
			diff.EdgesAdded = append(diff.EdgesAdded, e)
		}
	}
	for key, e := range fromEdges {
		if _, stillPresent := toEdges[key]; !stillPresent {
			diff.EdgesRemoved = append(diff.EdgesRemoved, e)
		}
	}
	sortEdges(diff.EdgesAdded)
	sortEdges(diff.EdgesRemoved)

	return diff, nil
}

func (d *Database) snapshotAtLocked(commitHash hash.Hash) (Snapshot, error) {
	if commitHash.IsZero() {
		return Snapshot{}, nil
	}
	c, err := d.loadCommit(commitHash)
	if err != nil {
		return Snapshot{}, err
	}
	return d.loadSnapshot(c.Snapshot)
}

func (d *Database) snapshotThoughtsLocked(snap Snapshot) (map[string]Thought, error) {
	out := make(map[string]Thought)
	if snap.TrieRoot.IsZero() {
		return out, nil
	}
	entries, err := trie.ListAll(d.store, snap.TrieRoot)
	if err != nil {
		return nil, newErr(KindCorrupt, err, "list trie")
	}
	for _, e := range entries {
		t, err := d.loadThoughtByHash(e.Value)
		if err != nil {
			return nil, err
		}
		out[e.ID] = t
	}
	return out, nil
}

func (d *Database) snapshotEdgesLocked(snap Snapshot) (map[hash.Hash]Edge, error) {
	out := make(map[hash.Hash]Edge)
	for _, eh := range snap.Edges {
		e, err := d.loadEdgeByHash(eh)
		if err != nil {
			return nil, err
		}
		out[eh] = e
	}
	return out, nil
}
