// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package dbfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/moonstripe/indra/hash"
	"github.com/moonstripe/indra/object"
)

// refEntry is one (name -> commit hash) pair in the refs footer.
type refEntry struct {
	Name   string
	Commit hash.Hash
}

func encodeIndexFooter(entries []object.Entry) []byte {
	buf := make([]byte, 4+len(entries)*indexEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	pos := 4
	for _, e := range entries {
		copy(buf[pos:pos+32], e.Hash[:])
		binary.LittleEndian.PutUint64(buf[pos+32:pos+40], uint64(e.Offset))
		binary.LittleEndian.PutUint32(buf[pos+40:pos+44], uint32(e.Length))
		pos += indexEntrySize
	}
	return buf
}

// decodeIndexFooter parses a complete, trusted index footer read from r.
func decodeIndexFooter(r io.Reader) ([]object.Entry, error) {
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: index count: %v", ErrCorrupt, err)
	}
	count := binary.LittleEndian.Uint32(countBuf[:])

	entries := make([]object.Entry, 0, count)
	body := make([]byte, indexEntrySize)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("%w: index entry %d: %v", ErrCorrupt, i, err)
		}
		var e object.Entry
		copy(e.Hash[:], body[0:32])
		e.Offset = int64(binary.LittleEndian.Uint64(body[32:40]))
		e.Length = int64(binary.LittleEndian.Uint32(body[40:44]))
		entries = append(entries, e)
	}
	return entries, nil
}

func encodeRefsFooter(refs []refEntry) []byte {
	size := 4
	for _, r := range refs {
		size += 2 + len(r.Name) + 32
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(refs)))
	pos := 4
	for _, r := range refs {
		binary.LittleEndian.PutUint16(buf[pos:pos+2], uint16(len(r.Name)))
		pos += 2
		copy(buf[pos:pos+len(r.Name)], r.Name)
		pos += len(r.Name)
		copy(buf[pos:pos+32], r.Commit[:])
		pos += 32
	}
	return buf
}

func decodeRefsFooter(r io.Reader) ([]refEntry, error) {
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: refs count: %v", ErrCorrupt, err)
	}
	count := binary.LittleEndian.Uint32(countBuf[:])

	refs := make([]refEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: ref %d name length: %v", ErrCorrupt, i, err)
		}
		nameLen := binary.LittleEndian.Uint16(lenBuf[:])
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return nil, fmt.Errorf("%w: ref %d name: %v", ErrCorrupt, i, err)
		}
		var commitBuf [32]byte
		if _, err := io.ReadFull(r, commitBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: ref %d commit: %v", ErrCorrupt, i, err)
		}
		refs = append(refs, refEntry{Name: string(nameBuf), Commit: hash.Hash(commitBuf)})
	}
	return refs, nil
}

// rescan walks the object region from header-end forward, one frame at a
// time via object.ScanFrame, rebuilding the index. It stops cleanly at a
// frame boundary that reaches end-of-file, and also stops (without error)
// at the first frame that fails to decode, treating everything up to that
// point as the recovered objects region. This is the best-effort recovery
// path spec.md §7 requires when the footer cannot be trusted.
func rescan(r io.ReaderAt, start, fileSize int64, logger *slog.Logger) ([]object.Entry, int64, error) {
	var entries []object.Entry
	offset := start

	for offset < fileSize {
		sr := io.NewSectionReader(r, offset, fileSize-offset)
		_, canonical, frameLen, err := object.ScanFrame(sr)
		if err != nil {
			if err == io.EOF {
				break
			}
			logger.Warn("dbfile: rescan stopped at truncated or corrupt frame", "offset", offset, "err", err)
			break
		}
		// canonical is already the full kind-tagged byte sequence hash.Canonical
		// produced, so it is hashed directly rather than re-wrapped.
		h := hash.Hash(blake3.Sum256(canonical))
		entries = append(entries, object.Entry{Hash: h, Offset: offset, Length: frameLen})
		offset += frameLen
	}

	return entries, offset, nil
}
