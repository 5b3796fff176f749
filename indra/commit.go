// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package indra

import (
	"sort"
	"time"

	"github.com/moonstripe/indra/dbfile"
	"github.com/moonstripe/indra/hash"
	"github.com/moonstripe/indra/trie"
)

// Commit folds the working set into a new commit on the current branch
// and clears the working set (spec C6 §4.6). It fails with DetachedHead
// if HEAD does not point at a branch.
func (d *Database) Commit(message string) (hash.Hash, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commitLocked(message)
}

func (d *Database) commitLocked(message string) (hash.Hash, error) {
	if d.head.Kind != dbfile.HeadBranch {
		return hash.Hash{}, newErr(KindDetachedHead, nil, "commit requires an attached branch HEAD")
	}

	parent, err := d.headCommitHash()
	if err != nil {
		return hash.Hash{}, err
	}
	snap, err := d.headSnapshot()
	if err != nil {
		return hash.Hash{}, err
	}

	trieRoot := snap.TrieRoot
	for id, t := range d.pending.thoughts {
		th, canon, err := hash.Of(hash.KindThought, t)
		if err != nil {
			return hash.Hash{}, newErr(KindCorrupt, err, "hash thought %q", id)
		}
		if _, err := d.store.Put(hash.KindThought, canon); err != nil {
			return hash.Hash{}, newErr(KindIO, err, "store thought %q", id)
		}
		trieRoot, err = trie.Insert(d.store, trieRoot, id, th)
		if err != nil {
			return hash.Hash{}, newErr(KindCorrupt, err, "trie insert %q", id)
		}
	}
	for id := range d.pending.deletedThoughts {
		var err error
		trieRoot, err = trie.Remove(d.store, trieRoot, id)
		if err != nil {
			return hash.Hash{}, newErr(KindCorrupt, err, "trie remove %q", id)
		}
	}

	activeEdges := make(map[edgeKey]hash.Hash)
	for _, eh := range snap.Edges {
		e, err := d.loadEdgeByHash(eh)
		if err != nil {
			return hash.Hash{}, err
		}
		activeEdges[keyOf(e)] = eh
	}
	for key, e := range d.pending.edges {
		eh, canon, err := hash.Of(hash.KindEdge, e)
		if err != nil {
			return hash.Hash{}, newErr(KindCorrupt, err, "hash edge %+v", key)
		}
		if _, err := d.store.Put(hash.KindEdge, canon); err != nil {
			return hash.Hash{}, newErr(KindIO, err, "store edge %+v", key)
		}
		activeEdges[key] = eh
	}
	for key := range d.pending.deletedEdges {
		delete(activeEdges, key)
	}

	edgeHashes := make([]hash.Hash, 0, len(activeEdges))
	for _, eh := range activeEdges {
		edgeHashes = append(edgeHashes, eh)
	}
	sortHashes(edgeHashes)

	newSnap := Snapshot{TrieRoot: trieRoot, Edges: edgeHashes}
	snapHash, snapCanon, err := hash.Of(hash.KindSnapshot, newSnap)
	if err != nil {
		return hash.Hash{}, newErr(KindCorrupt, err, "hash snapshot")
	}
	if _, err := d.store.Put(hash.KindSnapshot, snapCanon); err != nil {
		return hash.Hash{}, newErr(KindIO, err, "store snapshot")
	}

	newCommit := Commit{
		Snapshot:  snapHash,
		Parent:    parent,
		Message:   message,
		Author:    d.author,
		Timestamp: time.Now().UTC(),
	}
	commitHash, commitCanon, err := hash.Of(hash.KindCommit, newCommit)
	if err != nil {
		return hash.Hash{}, newErr(KindCorrupt, err, "hash commit")
	}
	if _, err := d.store.Put(hash.KindCommit, commitCanon); err != nil {
		return hash.Hash{}, newErr(KindIO, err, "store commit")
	}

	d.refs[d.head.Branch] = commitHash
	d.pending = newPendingState()

	if err := d.flushLocked(); err != nil {
		return hash.Hash{}, err
	}
	return commitHash, nil
}

// LogEntry pairs a commit's hash with its decoded contents.
type LogEntry struct {
	Hash   hash.Hash
	Commit Commit
}

// Log walks the parent chain from fromRef (or current HEAD if fromRef is
// empty) back to the root, in reverse chronological (most-recent-first)
// order.
func (d *Database) Log(fromRef string) ([]LogEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start, err := d.resolveRefLocked(fromRef)
	if err != nil {
		return nil, err
	}

	var entries []LogEntry
	for !start.IsZero() {
		c, err := d.loadCommit(start)
		if err != nil {
			return nil, err
		}
		entries = append(entries, LogEntry{Hash: start, Commit: c})
		start = c.Parent
	}
	return entries, nil
}

// Branch creates a new branch named name pointing at the current HEAD
// commit. Fails with AlreadyExists if the name is taken.
func (d *Database) Branch(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if name == "" {
		return newErr(KindInvalidArgument, nil, "branch name must not be empty")
	}
	if _, exists := d.refs[name]; exists {
		return newErr(KindAlreadyExists, nil, "branch %q already exists", name)
	}

	ch, err := d.headCommitHash()
	if err != nil {
		return err
	}
	d.refs[name] = ch
	return d.flushLocked()
}

// Branches returns every branch name, sorted.
func (d *Database) Branches() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.refs))
	for name := range d.refs {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

// Checkout switches HEAD to ref, which may be a branch name or a raw
// commit hash (detached HEAD). It refuses with InvalidArgument when the
// working set is dirty (SPEC_FULL.md §5(c)).
func (d *Database) Checkout(ref string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.pending.isEmpty() {
		return newErr(KindInvalidArgument, nil, "checkout refused: working set has uncommitted changes")
	}

	if _, ok := d.refs[ref]; ok {
		d.head = dbfile.Head{Kind: dbfile.HeadBranch, Branch: ref}
		return d.flushLocked()
	}

	h, err := hash.Parse(ref)
	if err != nil {
		return newErr(KindNotFound, nil, "no branch or commit %q", ref)
	}
	if _, _, err := d.store.Get(h); err != nil {
		return newErr(KindNotFound, err, "no branch or commit %q", ref)
	}
	d.head = dbfile.Head{Kind: dbfile.HeadCommit, Commit: h}
	return d.flushLocked()
}

// resolveRefLocked resolves ref to a commit hash: empty means current
// HEAD, otherwise a branch name or a raw commit hash.
func (d *Database) resolveRefLocked(ref string) (hash.Hash, error) {
	if ref == "" {
		return d.headCommitHash()
	}
	if ch, ok := d.refs[ref]; ok {
		return ch, nil
	}
	h, err := hash.Parse(ref)
	if err != nil {
		return hash.Hash{}, newErr(KindNotFound, nil, "no branch or commit %q", ref)
	}
	if _, _, err := d.store.Get(h); err != nil {
		return hash.Hash{}, newErr(KindNotFound, err, "no branch or commit %q", ref)
	}
	return h, nil
}

func sortHashes(hs []hash.Hash) {
	sort.Slice(hs, func(i, j int) bool { return hs[i].String() < hs[j].String() })
}
