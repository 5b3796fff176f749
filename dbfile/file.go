// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package dbfile

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/gofrs/flock"

	"github.com/moonstripe/indra/hash"
	"github.com/moonstripe/indra/object"
)

// File is an open Indra database file. It implements object.Backing, so an
// object.Store can append and read frames through it directly; dbfile
// itself never interprets object payloads.
type File struct {
	mu   sync.Mutex
	f    *os.File
	lock *flock.Flock

	objectsEnd int64
}

// OpenResult carries everything recovered from Open beyond the raw file
// handle: the index entries to seed an object.Store with, the resolved
// refs, HEAD, and whether recovery (rather than a clean footer read) was
// needed.
type OpenResult struct {
	File      *File
	Entries   []object.Entry
	Refs      map[string]hash.Hash
	Head      Head
	Recovered bool
}

// Open opens path, creating a fresh empty database if it doesn't exist.
// It takes an advisory exclusive lock for the process's ownership of the
// file (spec.md §5's recommended safeguard) and returns everything needed
// to reconstruct the in-memory object index and ref set.
func Open(path string, logger *slog.Logger) (*OpenResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("dbfile: acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("dbfile: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		lock.Unlock()
		return nil, fmt.Errorf("dbfile: stat %s: %w", path, err)
	}

	df := &File{f: f, lock: lock}

	if info.Size() == 0 {
		result, err := df.initEmpty()
		if err != nil {
			f.Close()
			lock.Unlock()
			return nil, err
		}
		return result, nil
	}

	result, err := df.load(info.Size(), logger)
	if err != nil {
		f.Close()
		lock.Unlock()
		return nil, err
	}
	return result, nil
}

// initEmpty writes a brand-new header, an empty index footer, and a refs
// footer with a single "main" -> null-hash ref, per spec.md §4.4.
func (df *File) initEmpty() (*OpenResult, error) {
	h := header{
		Version:     formatVersion,
		ObjectCount: 0,
		IndexOffset: headerSize,
		RefsOffset:  0, // fixed up below once the index footer's length is known
	}
	h.HeadKind, h.HeadPayload = encodeHead(Head{Kind: HeadBranch, Branch: "main"})

	indexFooter := encodeIndexFooter(nil)
	h.RefsOffset = headerSize + int64ToUint64(len(indexFooter))
	refsFooter := encodeRefsFooter([]refEntry{{Name: "main", Commit: hash.Zero}})

	if _, err := df.f.WriteAt(encodeHeader(h), 0); err != nil {
		return nil, fmt.Errorf("dbfile: write header: %w", err)
	}
	if _, err := df.f.WriteAt(indexFooter, headerSize); err != nil {
		return nil, fmt.Errorf("dbfile: write index footer: %w", err)
	}
	if _, err := df.f.WriteAt(refsFooter, int64(h.RefsOffset)); err != nil {
		return nil, fmt.Errorf("dbfile: write refs footer: %w", err)
	}

	df.objectsEnd = headerSize

	return &OpenResult{
		File:    df,
		Entries: nil,
		Refs:    map[string]hash.Hash{"main": hash.Zero},
		Head:    Head{Kind: HeadBranch, Branch: "main"},
	}, nil
}

func int64ToUint64(n int) uint64 { return uint64(n) }

// load reads an existing file's header and footers, falling back to a
// rescan when the footers cannot be trusted.
func (df *File) load(fileSize int64, logger *slog.Logger) (*OpenResult, error) {
	headerBuf := make([]byte, headerSize)
	if _, err := df.f.ReadAt(headerBuf, 0); err != nil {
		return nil, fmt.Errorf("dbfile: read header: %w", err)
	}
	h, err := decodeHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	entries, refEntries, recovered, newObjectsEnd, err := df.loadFooters(h, fileSize, logger)
	if err != nil {
		return nil, err
	}
	df.objectsEnd = newObjectsEnd

	refs := make(map[string]hash.Hash, len(refEntries))
	for _, r := range refEntries {
		refs[r.Name] = r.Commit
	}
	if _, ok := refs["main"]; !ok {
		refs["main"] = hash.Zero
	}

	head, err := resolveHead(h, entries, recovered, logger)
	if err != nil {
		return nil, err
	}

	return &OpenResult{
		File:      df,
		Entries:   entries,
		Refs:      refs,
		Head:      head,
		Recovered: recovered,
	}, nil
}

// loadFooters attempts a trusting read of the index/refs footers named by
// h; if that fails structurally, it rescans the object region and treats
// any refs footer bytes still readable as best-effort (dropping entries
// whose commit hash didn't survive).
func (df *File) loadFooters(h header, fileSize int64, logger *slog.Logger) ([]object.Entry, []refEntry, bool, int64, error) {
	if int64(h.IndexOffset) <= fileSize && int64(h.RefsOffset) <= fileSize && h.RefsOffset >= h.IndexOffset {
		entries, err := df.readIndexFooter(h.IndexOffset)
		if err == nil {
			refEntries, err := df.readRefsFooter(h.RefsOffset)
			if err == nil {
				if err := checkRefsResolve(entries, refEntries); err != nil {
					return nil, nil, false, 0, err
				}
				return entries, refEntries, false, int64(h.IndexOffset), nil
			}
		}
	}

	logger.Warn("dbfile: footer unreadable, rescanning object region")
	entries, objectsEnd, err := rescan(df.f, headerSize, fileSize, logger)
	if err != nil {
		return nil, nil, false, 0, err
	}

	known := make(map[hash.Hash]bool, len(entries))
	for _, e := range entries {
		known[e.Hash] = true
	}

	var refEntries []refEntry
	if int64(h.RefsOffset) <= fileSize {
		if candidates, err := df.readRefsFooter(h.RefsOffset); err == nil {
			for _, r := range candidates {
				if r.Commit.IsZero() || known[r.Commit] {
					refEntries = append(refEntries, r)
				} else {
					logger.Warn("dbfile: dropping ref pointing past recovered objects", "ref", r.Name)
				}
			}
		}
	}

	return entries, refEntries, true, objectsEnd, nil
}

// checkRefsResolve fails with ErrCorrupt if any ref names a commit hash
// absent from the index (spec.md §4.4), the same cross-check the rescan
// recovery path already applies when dropping unresolvable refs.
func checkRefsResolve(entries []object.Entry, refEntries []refEntry) error {
	known := make(map[hash.Hash]bool, len(entries))
	for _, e := range entries {
		known[e.Hash] = true
	}
	for _, r := range refEntries {
		if !r.Commit.IsZero() && !known[r.Commit] {
			return fmt.Errorf("%w: ref %q points at commit %s absent from the index", ErrCorrupt, r.Name, r.Commit)
		}
	}
	return nil
}

func (df *File) readIndexFooter(offset uint64) ([]object.Entry, error) {
	return decodeIndexFooter(&sectionReader{f: df.f, offset: int64(offset)})
}

func (df *File) readRefsFooter(offset uint64) ([]refEntry, error) {
	return decodeRefsFooter(&sectionReader{f: df.f, offset: int64(offset)})
}

// sectionReader is a minimal sequential io.Reader over an os.File starting
// at a fixed offset, used by the footer decoders which read in a single
// forward pass.
type sectionReader struct {
	f      *os.File
	offset int64
}

func (s *sectionReader) Read(p []byte) (int, error) {
	n, err := s.f.ReadAt(p, s.offset)
	s.offset += int64(n)
	return n, err
}

// resolveHead turns the header's HeadKind/HeadPayload into a usable Head.
// A detached commit stores only a 23-character hex prefix (see
// encodeHead); it is resolved here to the unique matching entry in the
// recovered index. An ambiguous or missing match fails with ErrCorrupt,
// unless recovery already dropped data, in which case it falls back to
// the "main" branch with a warning.
func resolveHead(h header, entries []object.Entry, recovered bool, logger *slog.Logger) (Head, error) {
	payload := decodeHeadPayload(h.HeadPayload)

	switch HeadKind(h.HeadKind) {
	case HeadBranch:
		return Head{Kind: HeadBranch, Branch: payload}, nil
	case HeadCommit:
		var match hash.Hash
		matches := 0
		for _, e := range entries {
			if len(payload) > 0 && bytes.HasPrefix([]byte(e.Hash.String()), []byte(payload)) {
				match = e.Hash
				matches++
			}
		}
		switch {
		case matches == 1:
			return Head{Kind: HeadCommit, Commit: match}, nil
		case recovered:
			logger.Warn("dbfile: could not resolve detached HEAD after recovery, falling back to main")
			return Head{Kind: HeadBranch, Branch: "main"}, nil
		default:
			return Head{}, fmt.Errorf("%w: detached HEAD prefix %q resolves to %d objects", ErrCorrupt, payload, matches)
		}
	default:
		return Head{}, fmt.Errorf("%w: unknown head kind %d", ErrCorrupt, h.HeadKind)
	}
}

// Append implements object.Backing: it appends p at the current end of the
// objects region and returns that offset.
func (df *File) Append(p []byte) (int64, error) {
	df.mu.Lock()
	defer df.mu.Unlock()

	offset := df.objectsEnd
	if _, err := df.f.WriteAt(p, offset); err != nil {
		return 0, fmt.Errorf("dbfile: append at %d: %w", offset, err)
	}
	df.objectsEnd += int64(len(p))
	return offset, nil
}

// ReadAt implements object.Backing / io.ReaderAt.
func (df *File) ReadAt(p []byte, off int64) (int, error) {
	return df.f.ReadAt(p, off)
}

// Flush rewrites the index and refs footers past the current end of the
// objects region and updates the header, per spec.md §4.4/§4.6 step 6.
func (df *File) Flush(entries []object.Entry, refs map[string]hash.Hash, head Head) error {
	df.mu.Lock()
	defer df.mu.Unlock()

	sortedEntries := append([]object.Entry(nil), entries...)
	sort.Slice(sortedEntries, func(i, j int) bool {
		return sortedEntries[i].Hash.String() < sortedEntries[j].Hash.String()
	})

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	refEntries := make([]refEntry, 0, len(names))
	for _, name := range names {
		refEntries = append(refEntries, refEntry{Name: name, Commit: refs[name]})
	}

	indexFooter := encodeIndexFooter(sortedEntries)
	refsFooter := encodeRefsFooter(refEntries)

	indexOffset := df.objectsEnd
	refsOffset := indexOffset + int64(len(indexFooter))

	if _, err := df.f.WriteAt(indexFooter, indexOffset); err != nil {
		return fmt.Errorf("dbfile: write index footer: %w", err)
	}
	if _, err := df.f.WriteAt(refsFooter, refsOffset); err != nil {
		return fmt.Errorf("dbfile: write refs footer: %w", err)
	}

	h := header{
		Version:     formatVersion,
		ObjectCount: uint64(len(sortedEntries)),
		IndexOffset: uint64(indexOffset),
		RefsOffset:  uint64(refsOffset),
	}
	h.HeadKind, h.HeadPayload = encodeHead(head)

	if _, err := df.f.WriteAt(encodeHeader(h), 0); err != nil {
		return fmt.Errorf("dbfile: write header: %w", err)
	}
	return df.f.Sync()
}

// Close releases the advisory lock and closes the underlying file handle.
func (df *File) Close() error {
	df.mu.Lock()
	defer df.mu.Unlock()

	closeErr := df.f.Close()
	unlockErr := df.lock.Unlock()
	if closeErr != nil {
		return fmt.Errorf("dbfile: close: %w", closeErr)
	}
	if unlockErr != nil {
		return fmt.Errorf("dbfile: unlock: %w", unlockErr)
	}
	return nil
}
