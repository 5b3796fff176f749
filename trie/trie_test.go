// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package trie

import (
	"bytes"
	"io"
	"sort"
	"testing"

	"github.com/moonstripe/indra/hash"
	"github.com/moonstripe/indra/object"
)

type memBacking struct{ buf bytes.Buffer }

func (m *memBacking) Append(p []byte) (int64, error) {
	off := int64(m.buf.Len())
	m.buf.Write(p)
	return off, nil
}

func (m *memBacking) ReadAt(p []byte, off int64) (int, error) {
	data := m.buf.Bytes()
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func valueHash(seed string) hash.Hash {
	h, _, _ := hash.Of(hash.KindThought, seed)
	return h
}

func TestInsertGetRoundTrip(t *testing.T) {
	store := object.New(&memBacking{})

	root := hash.Zero
	var err error
	root, err = Insert(store, root, "alpha", valueHash("alpha"))
	if err != nil {
		t.Fatal(err)
	}
	root, err = Insert(store, root, "beta", valueHash("beta"))
	if err != nil {
		t.Fatal(err)
	}

	got, ok, err := Get(store, root, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != valueHash("alpha") {
		t.Fatalf("Get(alpha) = %s, %v", got, ok)
	}

	_, ok, err = Get(store, root, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected missing id to be absent")
	}
}

func TestInsertUpdatesExistingKey(t *testing.T) {
	store := object.New(&memBacking{})

	root, err := Insert(store, hash.Zero, "x", valueHash("v1"))
	if err != nil {
		t.Fatal(err)
	}
	root, err = Insert(store, root, "x", valueHash("v2"))
	if err != nil {
		t.Fatal(err)
	}

	got, ok, err := Get(store, root, "x")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != valueHash("v2") {
		t.Fatalf("expected updated value, got %s", got)
	}
}

func TestListAllMatchesSortedIds(t *testing.T) {
	store := object.New(&memBacking{})
	ids := []string{"zeta", "alpha", "mid", "alphabet", "a"}

	root := hash.Zero
	var err error
	for _, id := range ids {
		root, err = Insert(store, root, id, valueHash(id))
		if err != nil {
			t.Fatal(err)
		}
	}

	entries, err := ListAll(store, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(ids) {
		t.Fatalf("got %d entries, want %d", len(entries), len(ids))
	}

	var got []string
	for _, e := range entries {
		got = append(got, e.ID)
	}
	want := append([]string{}, ids...)
	sort.Strings(want)

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ListAll order mismatch at %d: got %v, want %v", i, got, want)
		}
	}
}

func TestRemoveCollapsesEmptyBranches(t *testing.T) {
	store := object.New(&memBacking{})

	root, err := Insert(store, hash.Zero, "only", valueHash("only"))
	if err != nil {
		t.Fatal(err)
	}

	root, err = Remove(store, root, "only")
	if err != nil {
		t.Fatal(err)
	}
	if !root.IsZero() {
		t.Fatalf("expected empty trie after removing its only key, got root %s", root)
	}

	_, ok, err := Get(store, root, "only")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected removed key to be absent")
	}
}

func TestRemoveAbsentKeyIsNoop(t *testing.T) {
	store := object.New(&memBacking{})
	root, err := Insert(store, hash.Zero, "present", valueHash("present"))
	if err != nil {
		t.Fatal(err)
	}

	newRoot, err := Remove(store, root, "absent")
	if err != nil {
		t.Fatal(err)
	}
	if newRoot != root {
		t.Fatalf("expected root unchanged removing absent key: got %s, want %s", newRoot, root)
	}
}

func TestInsertSharesUnrelatedSubtrees(t *testing.T) {
	store := object.New(&memBacking{})

	root, err := Insert(store, hash.Zero, "shared-one", valueHash("one"))
	if err != nil {
		t.Fatal(err)
	}
	root, err = Insert(store, root, "shared-two", valueHash("two"))
	if err != nil {
		t.Fatal(err)
	}
	countBefore := store.Count()

	newRoot, err := Insert(store, root, "shared-one", valueHash("one-updated"))
	if err != nil {
		t.Fatal(err)
	}
	countAfter := store.Count()

	got, ok, err := Get(store, newRoot, "shared-two")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != valueHash("two") {
		t.Fatal("expected unrelated key's value preserved after sibling update")
	}

	newNodes := countAfter - countBefore
	maxExpected := len(nibbles("shared-one")) + 1
	if newNodes > maxExpected {
		t.Fatalf("expected at most %d new nodes on path-only update, got %d", maxExpected, newNodes)
	}
}
