// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package dbfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/moonstripe/indra/hash"
	"github.com/moonstripe/indra/object"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.indra")
}

func TestOpenCreatesEmptyDatabase(t *testing.T) {
	path := tempDBPath(t)

	res, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.File.Close()

	if len(res.Entries) != 0 {
		t.Fatalf("expected no entries in fresh db, got %d", len(res.Entries))
	}
	if res.Refs["main"] != hash.Zero {
		t.Fatalf("expected main -> zero hash, got %s", res.Refs["main"])
	}
	if res.Head.Kind != HeadBranch || res.Head.Branch != "main" {
		t.Fatalf("expected attached HEAD on main, got %+v", res.Head)
	}
}

func TestFlushAndReopenRoundTrips(t *testing.T) {
	path := tempDBPath(t)

	res, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	store := object.New(res.File)
	canon, _ := hash.Canonical(hash.KindThought, map[string]string{"content": "hello"})
	h, err := store.Put(hash.KindThought, canon)
	if err != nil {
		t.Fatal(err)
	}

	commitCanon, _ := hash.Canonical(hash.KindCommit, map[string]string{"msg": "first"})
	commitHash, err := store.Put(hash.KindCommit, commitCanon)
	if err != nil {
		t.Fatal(err)
	}
	refs := map[string]hash.Hash{"main": commitHash}
	if err := res.File.Flush(store.Entries(), refs, Head{Kind: HeadBranch, Branch: "main"}); err != nil {
		t.Fatal(err)
	}
	if err := res.File.Close(); err != nil {
		t.Fatal(err)
	}

	res2, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.File.Close()

	if len(res2.Entries) != 2 {
		t.Fatalf("expected 2 recovered entries, got %d", len(res2.Entries))
	}
	foundThought := false
	for _, e := range res2.Entries {
		if e.Hash == h {
			foundThought = true
		}
	}
	if !foundThought {
		t.Fatalf("recovered entries missing thought hash %s", h)
	}
	if res2.Refs["main"] != commitHash {
		t.Fatalf("recovered ref mismatch: got %s, want %s", res2.Refs["main"], commitHash)
	}

	store2 := object.New(res2.File)
	for _, e := range res2.Entries {
		store2.RestoreEntry(e.Hash, e.Offset, e.Length)
	}
	kind, got, err := store2.Get(h)
	if err != nil {
		t.Fatal(err)
	}
	if kind != hash.KindThought {
		t.Fatalf("kind = %v", kind)
	}
	if string(got) != string(canon) {
		t.Fatal("round-tripped canonical bytes differ")
	}
}

func TestDetachedHeadResolvesPrefix(t *testing.T) {
	path := tempDBPath(t)

	res, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	store := object.New(res.File)
	canon, _ := hash.Canonical(hash.KindCommit, map[string]string{"msg": "c1"})
	commitHash, err := store.Put(hash.KindCommit, canon)
	if err != nil {
		t.Fatal(err)
	}

	refs := map[string]hash.Hash{"main": commitHash}
	head := Head{Kind: HeadCommit, Commit: commitHash}
	if err := res.File.Flush(store.Entries(), refs, head); err != nil {
		t.Fatal(err)
	}
	if err := res.File.Close(); err != nil {
		t.Fatal(err)
	}

	res2, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.File.Close()

	if res2.Head.Kind != HeadCommit {
		t.Fatalf("expected detached HEAD, got %+v", res2.Head)
	}
	if res2.Head.Commit != commitHash {
		t.Fatalf("resolved detached HEAD mismatch: got %s, want %s", res2.Head.Commit, commitHash)
	}
}

func TestCorruptionTriggersRescan(t *testing.T) {
	path := tempDBPath(t)

	res, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	store := object.New(res.File)
	canon1, _ := hash.Canonical(hash.KindThought, map[string]string{"content": "one"})
	h1, err := store.Put(hash.KindThought, canon1)
	if err != nil {
		t.Fatal(err)
	}
	canon2, _ := hash.Canonical(hash.KindThought, map[string]string{"content": "two"})
	h2, err := store.Put(hash.KindThought, canon2)
	if err != nil {
		t.Fatal(err)
	}

	refs := map[string]hash.Hash{"main": hash.Zero}
	if err := res.File.Flush(store.Entries(), refs, Head{Kind: HeadBranch, Branch: "main"}); err != nil {
		t.Fatal(err)
	}
	if err := res.File.Close(); err != nil {
		t.Fatal(err)
	}

	// Truncate the file partway through the second object's frame, simulating
	// a crash mid-write: the first object must still be recoverable, the
	// second (and the footers entirely past it) must not.
	var secondEntry object.Entry
	for _, e := range store.Entries() {
		if e.Hash == h2 {
			secondEntry = e
		}
	}
	truncateAt := secondEntry.Offset + secondEntry.Length/2

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(truncateAt); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	res2, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.File.Close()

	if !res2.Recovered {
		t.Fatal("expected recovery path to trigger after truncation")
	}

	var foundFirst, foundSecond bool
	for _, e := range res2.Entries {
		switch e.Hash {
		case h1:
			foundFirst = true
		case h2:
			foundSecond = true
		}
	}
	if !foundFirst {
		t.Fatal("expected first object to survive rescan recovery")
	}
	if foundSecond {
		t.Fatal("expected truncated second object to be dropped by rescan")
	}
}

func TestOpenRejectsRefPointingPastIndex(t *testing.T) {
	path := tempDBPath(t)

	res, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	store := object.New(res.File)
	canon, _ := hash.Canonical(hash.KindThought, map[string]string{"content": "one"})
	if _, err := store.Put(hash.KindThought, canon); err != nil {
		t.Fatal(err)
	}

	// danglingHash is never written to the store, so it can't appear in the
	// index footer; a refs footer naming it is structurally well-formed but
	// semantically corrupt.
	danglingHash, _, _ := hash.Of(hash.KindCommit, map[string]string{"msg": "never stored"})
	refs := map[string]hash.Hash{"main": danglingHash}
	if err := res.File.Flush(store.Entries(), refs, Head{Kind: HeadBranch, Branch: "main"}); err != nil {
		t.Fatal(err)
	}
	if err := res.File.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path, nil); err == nil {
		t.Fatal("expected Open to fail when a ref names a commit absent from the index")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := tempDBPath(t)
	garbage := make([]byte, headerSize)
	copy(garbage, "NOTINDRA")
	if err := os.WriteFile(path, garbage, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path, nil); err == nil {
		t.Fatal("expected UnsupportedFormat error for bad magic")
	}
}
