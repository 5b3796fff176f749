// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package indra

import (
	"github.com/moonstripe/indra/hash"
	"github.com/moonstripe/indra/trie"
)

// Verify walks every ref's full commit history and confirms every object
// it reaches — commit, snapshot, trie node, thought, edge — resolves in
// the store (SUPPLEMENTED feature, modeled on the teacher's
// Snapshot.Walk). It returns the first Corrupt error encountered, or nil
// if the whole reachable object graph checks out.
func (d *Database) Verify() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	visitedCommits := make(map[hash.Hash]bool)

	for name, ch := range d.refs {
		for !ch.IsZero() {
			if visitedCommits[ch] {
				break
			}
			visitedCommits[ch] = true

			kind, canon, err := d.store.Get(ch)
			if err != nil {
				return newErr(KindCorrupt, err, "ref %q: unreachable commit %s", name, ch)
			}
			if kind != hash.KindCommit {
				return newErr(KindCorrupt, nil, "ref %q: object %s is not a commit", name, ch)
			}
			var c Commit
			if err := hash.Decode(canon, &c); err != nil {
				return newErr(KindCorrupt, err, "ref %q: decode commit %s", name, ch)
			}

			if err := d.verifySnapshot(c.Snapshot); err != nil {
				return err
			}

			ch = c.Parent
		}
	}

	return nil
}

func (d *Database) verifySnapshot(sh hash.Hash) error {
	if sh.IsZero() {
		return nil
	}
	kind, canon, err := d.store.Get(sh)
	if err != nil {
		return newErr(KindCorrupt, err, "unreachable snapshot %s", sh)
	}
	if kind != hash.KindSnapshot {
		return newErr(KindCorrupt, nil, "object %s is not a snapshot", sh)
	}
	var snap Snapshot
	if err := hash.Decode(canon, &snap); err != nil {
		return newErr(KindCorrupt, err, "decode snapshot %s", sh)
	}

	if !snap.TrieRoot.IsZero() {
		entries, err := trie.ListAll(d.store, snap.TrieRoot)
		if err != nil {
			return newErr(KindCorrupt, err, "walk trie %s", snap.TrieRoot)
		}
		for _, e := range entries {
			tk, _, err := d.store.Get(e.Value)
			if err != nil {
				return newErr(KindCorrupt, err, "unreachable thought %s (id %q)", e.Value, e.ID)
			}
			if tk != hash.KindThought {
				return newErr(KindCorrupt, nil, "object %s is not a thought", e.Value)
			}
		}
	}

	for _, eh := range snap.Edges {
		ek, _, err := d.store.Get(eh)
		if err != nil {
			return newErr(KindCorrupt, err, "unreachable edge %s", eh)
		}
		if ek != hash.KindEdge {
			return newErr(KindCorrupt, nil, "object %s is not an edge", eh)
		}
	}

	return nil
}
