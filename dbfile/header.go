// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package dbfile

import (
	"encoding/binary"
	"fmt"
)

// header is the in-memory mirror of the 64-byte on-disk header.
type header struct {
	Version     uint32
	Flags       uint32
	ObjectCount uint64
	IndexOffset uint64
	RefsOffset  uint64
	HeadKind    HeadKind
	HeadPayload [headPayloadSize]byte
}

func encodeHeader(h header) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:8], magic)
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	binary.LittleEndian.PutUint32(buf[12:16], h.Flags)
	binary.LittleEndian.PutUint64(buf[16:24], h.ObjectCount)
	binary.LittleEndian.PutUint64(buf[24:32], h.IndexOffset)
	binary.LittleEndian.PutUint64(buf[32:40], h.RefsOffset)
	buf[40] = byte(h.HeadKind)
	copy(buf[41:64], h.HeadPayload[:])
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	var h header
	if len(buf) < headerSize {
		return h, fmt.Errorf("%w: header truncated (%d bytes)", ErrCorrupt, len(buf))
	}
	if string(buf[0:8]) != magic {
		return h, fmt.Errorf("%w: bad magic", ErrUnsupportedFormat)
	}
	h.Version = binary.LittleEndian.Uint32(buf[8:12])
	if h.Version != formatVersion {
		return h, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, h.Version)
	}
	h.Flags = binary.LittleEndian.Uint32(buf[12:16])
	h.ObjectCount = binary.LittleEndian.Uint64(buf[16:24])
	h.IndexOffset = binary.LittleEndian.Uint64(buf[24:32])
	h.RefsOffset = binary.LittleEndian.Uint64(buf[32:40])
	h.HeadKind = HeadKind(buf[40])
	copy(h.HeadPayload[:], buf[41:64])
	return h, nil
}

// encodeHead packs a Head into the header's fixed 23-byte payload field.
// An attached branch stores its UTF-8 name, NUL-padded. A detached commit
// stores only the first 23 characters of the hash's hex string — the
// field is too narrow for the full 64-character encoding. On decode this
// prefix is resolved back to a full hash by matching it against the
// object index (see resolveHead).
func encodeHead(head Head) (HeadKind, [headPayloadSize]byte) {
	var payload [headPayloadSize]byte
	switch head.Kind {
	case HeadBranch:
		copy(payload[:], head.Branch)
	case HeadCommit:
		copy(payload[:], head.Commit.String())
	}
	return head.Kind, payload
}

// decodeHeadPayload extracts the raw string stored in payload, stopping at
// the first NUL byte.
func decodeHeadPayload(payload [headPayloadSize]byte) string {
	n := len(payload)
	for i, b := range payload {
		if b == 0 {
			n = i
			break
		}
	}
	return string(payload[:n])
}
