// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package indra implements the core graph database: commits, branches,
// a working set of staged mutations, graph operations, vector search, and
// diff (spec C6-C10), layered on object (C2/C3), trie (C5), and dbfile
// (C4).
package indra

import (
	"log/slog"
	"sync"

	"github.com/moonstripe/indra/dbfile"
	"github.com/moonstripe/indra/embed"
	"github.com/moonstripe/indra/hash"
	"github.com/moonstripe/indra/internal/config"
	"github.com/moonstripe/indra/object"
)

// Database is a single open Indra file: the object store, the commit/ref
// graph, and a working set of not-yet-committed mutations. All public
// methods are serialized by a coarse lock (spec.md §5 — single-writer,
// no intra-operation parallelism).
type Database struct {
	mu sync.Mutex

	file   *dbfile.File
	store  *object.Store
	logger *slog.Logger

	embedder   embed.Embedder
	autoCommit bool
	author     string

	refs map[string]hash.Hash // branch name -> commit hash
	head dbfile.Head

	pending pendingState
}

// pendingState is the working set (spec C7): staged mutations consulted
// before the HEAD view on every read.
type pendingState struct {
	thoughts        map[string]Thought
	deletedThoughts map[string]bool
	edges           map[edgeKey]Edge
	deletedEdges    map[edgeKey]bool
}

func newPendingState() pendingState {
	return pendingState{
		thoughts:        make(map[string]Thought),
		deletedThoughts: make(map[string]bool),
		edges:           make(map[edgeKey]Edge),
		deletedEdges:    make(map[edgeKey]bool),
	}
}

func (p pendingState) isEmpty() bool {
	return len(p.thoughts) == 0 && len(p.deletedThoughts) == 0 && len(p.edges) == 0 && len(p.deletedEdges) == 0
}

// Option configures Open.
type Option func(*Database)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Database) { d.logger = logger }
}

// WithEmbedder attaches an embedder, required for Search and for
// materializing embeddings on thought create/update.
func WithEmbedder(e embed.Embedder) Option {
	return func(d *Database) { d.embedder = e }
}

// WithAutoCommit overrides the default auto_commit=true mode (spec C7).
func WithAutoCommit(enabled bool) Option {
	return func(d *Database) { d.autoCommit = enabled }
}

// WithAuthor overrides the name recorded on commits. Defaults to
// config.Author() (INDRA_AUTHOR, then $USER, then $USERNAME, then
// "unknown").
func WithAuthor(name string) Option {
	return func(d *Database) { d.author = name }
}

// Open opens (or creates) the database file at path.
func Open(path string, opts ...Option) (*Database, error) {
	d := &Database{
		logger:     slog.Default(),
		autoCommit: true,
		author:     config.Author(),
		pending:    newPendingState(),
	}
	for _, opt := range opts {
		opt(d)
	}

	res, err := dbfile.Open(path, d.logger)
	if err != nil {
		return nil, newErr(KindIO, err, "open %s", path)
	}

	d.file = res.File
	d.store = object.New(res.File)
	for _, e := range res.Entries {
		d.store.RestoreEntry(e.Hash, e.Offset, e.Length)
	}
	d.refs = res.Refs
	d.head = res.Head

	if res.Recovered {
		d.logger.Warn("indra: database recovered from an unclean shutdown", "path", path)
	}

	return d, nil
}

// Close flushes any committed state to disk and releases the file.
// An active (uncommitted) working set is not flushed — callers must
// Commit first, consistent with auto_commit's "commit after every
// mutation" default leaving nothing uncommitted in the common case.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.flushLocked(); err != nil {
		return err
	}
	if err := d.file.Close(); err != nil {
		return newErr(KindIO, err, "close")
	}
	return nil
}

func (d *Database) flushLocked() error {
	if err := d.file.Flush(d.store.Entries(), d.refs, d.head); err != nil {
		return newErr(KindIO, err, "flush")
	}
	return nil
}

// headCommitHash resolves the current HEAD to a concrete commit hash,
// which is hash.Zero before the first commit exists on this branch.
func (d *Database) headCommitHash() (hash.Hash, error) {
	switch d.head.Kind {
	case dbfile.HeadBranch:
		return d.refs[d.head.Branch], nil
	case dbfile.HeadCommit:
		return d.head.Commit, nil
	default:
		return hash.Hash{}, newErr(KindCorrupt, nil, "unknown head kind")
	}
}

func (d *Database) loadCommit(h hash.Hash) (Commit, error) {
	var c Commit
	if h.IsZero() {
		return c, nil
	}
	kind, canon, err := d.store.Get(h)
	if err != nil {
		return c, newErr(KindCorrupt, err, "load commit %s", h)
	}
	if kind != hash.KindCommit {
		return c, newErr(KindCorrupt, nil, "object %s is not a commit", h)
	}
	if err := hash.Decode(canon, &c); err != nil {
		return c, newErr(KindCorrupt, err, "decode commit %s", h)
	}
	return c, nil
}

func (d *Database) loadSnapshot(h hash.Hash) (Snapshot, error) {
	var s Snapshot
	if h.IsZero() {
		return s, nil
	}
	kind, canon, err := d.store.Get(h)
	if err != nil {
		return s, newErr(KindCorrupt, err, "load snapshot %s", h)
	}
	if kind != hash.KindSnapshot {
		return s, newErr(KindCorrupt, nil, "object %s is not a snapshot", h)
	}
	if err := hash.Decode(canon, &s); err != nil {
		return s, newErr(KindCorrupt, err, "decode snapshot %s", h)
	}
	return s, nil
}

// headSnapshot loads the Snapshot reachable from the current HEAD commit,
// or the empty Snapshot if no commit exists yet.
func (d *Database) headSnapshot() (Snapshot, error) {
	ch, err := d.headCommitHash()
	if err != nil {
		return Snapshot{}, err
	}
	if ch.IsZero() {
		return Snapshot{}, nil
	}
	c, err := d.loadCommit(ch)
	if err != nil {
		return Snapshot{}, err
	}
	return d.loadSnapshot(c.Snapshot)
}

func (d *Database) loadThoughtByHash(h hash.Hash) (Thought, error) {
	var t Thought
	kind, canon, err := d.store.Get(h)
	if err != nil {
		return t, newErr(KindCorrupt, err, "load thought %s", h)
	}
	if kind != hash.KindThought {
		return t, newErr(KindCorrupt, nil, "object %s is not a thought", h)
	}
	if err := hash.Decode(canon, &t); err != nil {
		return t, newErr(KindCorrupt, err, "decode thought %s", h)
	}
	return t, nil
}

func (d *Database) loadEdgeByHash(h hash.Hash) (Edge, error) {
	var e Edge
	kind, canon, err := d.store.Get(h)
	if err != nil {
		return e, newErr(KindCorrupt, err, "load edge %s", h)
	}
	if kind != hash.KindEdge {
		return e, newErr(KindCorrupt, nil, "object %s is not an edge", h)
	}
	if err := hash.Decode(canon, &e); err != nil {
		return e, newErr(KindCorrupt, err, "decode edge %s", h)
	}
	return e, nil
}
