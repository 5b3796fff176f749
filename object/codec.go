// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package object implements Indra's content-addressed, compressed,
// deduplicated blob table (spec C2/C3): a codec that frames canonical
// object bytes for on-disk storage, and a store that appends frames and
// indexes them by content hash.
package object

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/moonstripe/indra/hash"
)

// ErrCorrupt is returned when a frame is truncated, carries an unknown
// kind, or fails to decompress.
var ErrCorrupt = errors.New("object: corrupt frame")

// frameHeaderLen is the fixed prefix before the compressed payload:
// 1 byte kind + 4 bytes little-endian uncompressed length.
const frameHeaderLen = 1 + 4

// zstdLevel is fixed at level 3 ("SpeedDefault" in klauspost's level naming)
// per spec.md §4.2 — the codec never negotiates compression level per call.
const zstdLevel = zstd.SpeedDefault

var sharedEncoder = mustNewEncoder()

func mustNewEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel))
	if err != nil {
		panic(fmt.Sprintf("object: failed to construct zstd encoder: %v", err))
	}
	return enc
}

// EncodeFrame compresses canonical and frames it as
// [kind][u32 uncompressed length LE][zstd payload].
func EncodeFrame(kind hash.Kind, canonical []byte) []byte {
	compressed := sharedEncoder.EncodeAll(canonical, nil)

	frame := make([]byte, 0, frameHeaderLen+len(compressed))
	frame = append(frame, byte(kind))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(canonical)))
	frame = append(frame, lenBuf[:]...)
	frame = append(frame, compressed...)
	return frame
}

// DecodeFrame is the inverse of EncodeFrame: given the full frame bytes, it
// returns the object kind and the decompressed canonical payload.
func DecodeFrame(frame []byte) (hash.Kind, []byte, error) {
	if len(frame) < frameHeaderLen {
		return 0, nil, fmt.Errorf("%w: truncated header (%d bytes)", ErrCorrupt, len(frame))
	}

	kind := hash.Kind(frame[0])
	switch kind {
	case hash.KindThought, hash.KindEdge, hash.KindTrieNode, hash.KindCommit, hash.KindSnapshot:
	default:
		return 0, nil, fmt.Errorf("%w: unknown kind %d", ErrCorrupt, kind)
	}

	uncompressedLen := binary.LittleEndian.Uint32(frame[1:5])
	compressed := frame[frameHeaderLen:]

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: construct decoder: %v", ErrCorrupt, err)
	}
	defer dec.Close()

	canonical, err := dec.DecodeAll(compressed, make([]byte, 0, uncompressedLen))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}
	if uint32(len(canonical)) != uncompressedLen {
		return 0, nil, fmt.Errorf("%w: length mismatch: header says %d, got %d", ErrCorrupt, uncompressedLen, len(canonical))
	}

	return kind, canonical, nil
}

// ScanFrame reads exactly one frame starting at the current position of r
// without knowing its length in advance, returning the decoded kind,
// canonical payload, and the total number of bytes the frame occupied on
// disk (header + compressed payload). It is used by dbfile's crash-recovery
// rescan, which walks the object region frame-by-frame when the index
// footer cannot be trusted.
//
// Zstd frames are self-terminating: the decoder only pulls as many bytes
// from the underlying reader as the compressed block headers say it needs,
// so the byte count observed through a counting wrapper equals the frame's
// on-disk length. If r is already at clean end-of-region (no more frames),
// ScanFrame returns io.EOF.
func ScanFrame(r io.Reader) (hash.Kind, []byte, int64, error) {
	header := make([]byte, frameHeaderLen)
	n, err := io.ReadFull(r, header)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return 0, nil, 0, io.EOF
		}
		return 0, nil, 0, fmt.Errorf("%w: truncated header: %v", ErrCorrupt, err)
	}

	kind := hash.Kind(header[0])
	switch kind {
	case hash.KindThought, hash.KindEdge, hash.KindTrieNode, hash.KindCommit, hash.KindSnapshot:
	default:
		return 0, nil, 0, fmt.Errorf("%w: unknown kind %d", ErrCorrupt, kind)
	}
	uncompressedLen := binary.LittleEndian.Uint32(header[1:5])

	cr := &countingReader{r: r}
	dec, err := zstd.NewReader(cr)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("%w: construct decoder: %v", ErrCorrupt, err)
	}
	defer dec.Close()

	canonical := make([]byte, uncompressedLen)
	if _, err := io.ReadFull(dec, canonical); err != nil {
		return 0, nil, 0, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}

	return kind, canonical, int64(frameHeaderLen) + cr.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
