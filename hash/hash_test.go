// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package hash

import "testing"

type sample struct {
	B string         `msgpack:"b"`
	A string         `msgpack:"a"`
	M map[string]int `msgpack:"m"`
}

func TestCanonicalStableUnderFieldAndMapOrder(t *testing.T) {
	s1 := sample{A: "x", B: "y", M: map[string]int{"z": 1, "a": 2}}
	s2 := sample{B: "y", A: "x", M: map[string]int{"a": 2, "z": 1}}

	h1, _, err := Of(KindThought, s1)
	if err != nil {
		t.Fatalf("Of(s1): %v", err)
	}
	h2, _, err := Of(KindThought, s2)
	if err != nil {
		t.Fatalf("Of(s2): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical hashes for field-order-independent struct, got %s vs %s", h1, h2)
	}
}

func TestCanonicalKindTagPreventsCollision(t *testing.T) {
	v := sample{A: "x", B: "y"}
	h1, _, _ := Of(KindThought, v)
	h2, _, _ := Of(KindEdge, v)
	if h1 == h2 {
		t.Fatal("expected different hashes for different kinds over identical payload")
	}
}

func TestParseRoundTrip(t *testing.T) {
	h, _, err := Of(KindCommit, sample{A: "a", B: "b"})
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse(h.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != h {
		t.Fatalf("round trip mismatch: %s vs %s", parsed, h)
	}
}

func TestParseInvalidLength(t *testing.T) {
	if _, err := Parse("deadbeef"); err == nil {
		t.Fatal("expected error for short hash string")
	}
}

func TestDecodeRoundTripsThroughCanonical(t *testing.T) {
	type nested struct {
		Child Hash   `msgpack:"child"`
		Name  string `msgpack:"name"`
	}
	want := nested{Name: "leaf"}
	want.Child, _, _ = Of(KindTrieNode, sample{A: "a"})

	canon, err := Canonical(KindCommit, want)
	if err != nil {
		t.Fatal(err)
	}
	if ExtractKind(canon) != KindCommit {
		t.Fatalf("ExtractKind = %v, want KindCommit", ExtractKind(canon))
	}

	var got nested
	if err := Decode(canon, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != want {
		t.Fatalf("Decode round trip mismatch: got %+v, want %+v", got, want)
	}
}
