// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/moonstripe/indra/hash"
)

// ErrNotFound is returned by Get when a hash is unknown to the store.
var ErrNotFound = errors.New("object: not found")

// indexEntry records where a stored object's frame lives.
type indexEntry struct {
	offset int64
	length int64
}

// Backing is the minimal interface the store needs from its backing file:
// append bytes at the end, and read a slice of bytes at an arbitrary
// offset. dbfile.File implements this.
type Backing interface {
	io.ReaderAt
	Append(p []byte) (offset int64, err error)
}

// Store is the append-only, content-addressed object table. Writing an
// already-known hash is a no-op; reading an unknown hash fails with
// ErrNotFound. The store never interprets payload bytes — callers decide
// what a Kind's canonical bytes mean.
type Store struct {
	backing Backing
	index   map[hash.Hash]indexEntry

	objectCount    int
	compressedSz   int64
	uncompressedSz int64
}

// New wraps backing with an empty in-memory index. Use RestoreEntry to
// restore state from a previously persisted footer.
func New(backing Backing) *Store {
	return &Store{
		backing: backing,
		index:   make(map[hash.Hash]indexEntry),
	}
}

// Put stores canonical (the output of hash.Canonical, already kind-tagged)
// under its BLAKE3 content hash, appending a compressed frame if the hash
// is unseen. Returns the hash either way — writing an existing hash is a
// no-op that still returns the (unchanged) hash.
func (s *Store) Put(kind hash.Kind, canonical []byte) (hash.Hash, error) {
	h := hash.Hash(blake3.Sum256(canonical))

	if _, ok := s.index[h]; ok {
		return h, nil
	}

	frame := EncodeFrame(kind, canonical)
	offset, err := s.backing.Append(frame)
	if err != nil {
		return hash.Hash{}, fmt.Errorf("object: append: %w", err)
	}

	s.index[h] = indexEntry{offset: offset, length: int64(len(frame))}
	s.objectCount++
	s.compressedSz += int64(len(frame))
	s.uncompressedSz += int64(len(canonical))
	return h, nil
}

// Get reads and decodes the object stored under h.
func (s *Store) Get(h hash.Hash) (hash.Kind, []byte, error) {
	entry, ok := s.index[h]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s", ErrNotFound, h)
	}

	frame := make([]byte, entry.length)
	if _, err := s.backing.ReadAt(frame, entry.offset); err != nil {
		return 0, nil, fmt.Errorf("object: read frame at %d: %w", entry.offset, err)
	}

	return DecodeFrame(frame)
}

// Has reports whether h is known to the store.
func (s *Store) Has(h hash.Hash) bool {
	_, ok := s.index[h]
	return ok
}

// Iter calls fn for every known hash, in unspecified order. Iteration stops
// early if fn returns false.
func (s *Store) Iter(fn func(hash.Hash) bool) {
	for h := range s.index {
		if !fn(h) {
			return
		}
	}
}

// Count returns the number of distinct objects stored.
func (s *Store) Count() int {
	return s.objectCount
}

// Stats reports aggregate size information, used by tests asserting the
// structural-sharing bound in spec.md §8 scenario 5.
type Stats struct {
	ObjectCount       int
	CompressedBytes   int64
	UncompressedBytes int64
}

// Stats returns aggregate size accounting for the store's lifetime.
func (s *Store) Stats() Stats {
	return Stats{
		ObjectCount:       s.objectCount,
		CompressedBytes:   s.compressedSz,
		UncompressedBytes: s.uncompressedSz,
	}
}

// RestoreEntry re-inserts a previously known (hash, offset, length) triple
// into the in-memory index. Used when loading the index footer or when
// rebuilding it via rescan.
func (s *Store) RestoreEntry(h hash.Hash, offset, length int64) {
	if _, ok := s.index[h]; ok {
		return
	}
	s.index[h] = indexEntry{offset: offset, length: length}
	s.objectCount++
	s.compressedSz += length
}

// Entries returns every (hash, offset, length) triple known to the store,
// in unspecified order — used to serialize the index footer on flush.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.index))
	for h, e := range s.index {
		out = append(out, Entry{Hash: h, Offset: e.offset, Length: e.length})
	}
	return out
}

// Entry is the public (hash, offset, length) triple used by dbfile to
// serialize/deserialize the index footer.
type Entry struct {
	Hash   hash.Hash
	Offset int64
	Length int64
}

