// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package dbfile implements Indra's single-file on-disk format (spec C4):
// a 64-byte header, an append-only object region, and index/refs footers
// rewritten past the end of that region on every flush. It exposes the
// narrow object.Backing contract so an object.Store can sit directly on
// top of a *File.
package dbfile

import (
	"errors"

	"github.com/moonstripe/indra/hash"
)

// ErrUnsupportedFormat is returned by Open when the magic or version field
// doesn't match what this package writes.
var ErrUnsupportedFormat = errors.New("dbfile: unsupported format")

// ErrLocked is returned by Open when another process already holds the
// advisory lock on path.
var ErrLocked = errors.New("dbfile: database already locked by another process")

// ErrCorrupt is returned when the file is inconsistent in a way rescanning
// does not repair: a truncated header, a well-formed refs footer naming a
// commit hash absent from the index, a detached HEAD prefix that matches
// zero or several objects (outside recovery), or an unknown head kind.
// Bad magic or version is ErrUnsupportedFormat instead.
var ErrCorrupt = errors.New("dbfile: corrupt")

const (
	magic        = "INDRA_DB"
	formatVersion = uint32(1)

	headerSize      = 64
	headPayloadSize = 23

	indexEntrySize = 32 + 8 + 4 // hash + offset + length
)

// HeadKind distinguishes an attached branch HEAD from a detached commit HEAD.
type HeadKind uint8

const (
	HeadBranch HeadKind = 0
	HeadCommit HeadKind = 1
)

// Head is HEAD's resolved state: either a branch name (attached) or a
// commit hash (detached).
type Head struct {
	Kind   HeadKind
	Branch string
	Commit hash.Hash
}
