// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package hash derives content addresses for Indra objects.
//
// Every object (thought, edge, trie node, commit, snapshot) is hashed by
// prefixing a one-byte kind tag to its canonical msgpack encoding and taking
// the BLAKE3-256 digest. Canonical encoding uses msgpack with sorted map
// keys so that two logically identical objects always produce identical
// bytes regardless of field insertion order, giving deterministic,
// collision-resistant content addresses.
package hash

import (
	"bytes"
	"encoding/hex"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
)

// Size is the length in bytes of a Hash.
const Size = 32

// Hash is a 32-byte BLAKE3 content address.
type Hash [Size]byte

// Zero is the all-zero hash, used as the "no parent" / "no commit" sentinel.
var Zero Hash

// IsZero reports whether h is the all-zero sentinel hash.
func (h Hash) IsZero() bool {
	return h == Zero
}

// String returns the lowercase hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Parse decodes a hex-encoded hash. It fails if s is not exactly 64 hex
// characters.
func Parse(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != Size {
		return h, ErrInvalidLength
	}
	copy(h[:], b)
	return h, nil
}

// Kind tags the object type hashed, preventing cross-type hash collisions
// between e.g. a Thought and an Edge that happen to canonicalize to the
// same bytes minus the tag.
type Kind byte

const (
	KindThought  Kind = 1
	KindEdge     Kind = 2
	KindTrieNode Kind = 3
	KindCommit   Kind = 4
	KindSnapshot Kind = 5
)

func (k Kind) String() string {
	switch k {
	case KindThought:
		return "thought"
	case KindEdge:
		return "edge"
	case KindTrieNode:
		return "trie_node"
	case KindCommit:
		return "commit"
	case KindSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// Canonical returns the canonical byte encoding of v, prefixed by kind's
// tag byte. v is encoded with msgpack using sorted map keys so that field
// order and map iteration order never affect the resulting bytes.
func Canonical(kind Kind, v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte(byte(kind))

	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Of computes the content hash of v under kind: BLAKE3-256 of Canonical(kind, v).
func Of(kind Kind, v any) (Hash, []byte, error) {
	canon, err := Canonical(kind, v)
	if err != nil {
		return Hash{}, nil, err
	}
	return blake3.Sum256(canon), canon, nil
}

// Decode unmarshals the payload following the kind tag written by Canonical
// into v. Callers that already know the expected kind (or that read it via
// ExtractKind) use this to turn stored object bytes back into a struct.
func Decode(canonical []byte, v any) error {
	if len(canonical) < 1 {
		return ErrInvalidLength
	}
	return msgpack.Unmarshal(canonical[1:], v)
}

// ExtractKind reads the one-byte kind tag Canonical wrote at canonical[0].
func ExtractKind(canonical []byte) Kind {
	if len(canonical) < 1 {
		return 0
	}
	return Kind(canonical[0])
}

// EncodeMsgpack implements msgpack.CustomEncoder so a Hash embedded in a
// larger struct serializes as a fixed-length byte string instead of a
// 32-element array of integers.
func (h Hash) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(h[:])
}

// DecodeMsgpack implements msgpack.CustomDecoder, the inverse of EncodeMsgpack.
func (h *Hash) DecodeMsgpack(dec *msgpack.Decoder) error {
	b, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	if len(b) != Size {
		return ErrInvalidLength
	}
	copy(h[:], b)
	return nil
}

// ErrInvalidLength is returned by Parse when the decoded bytes aren't
// exactly Size long.
var ErrInvalidLength = errInvalidLength{}

type errInvalidLength struct{}

func (errInvalidLength) Error() string { return "hash: invalid length" }
