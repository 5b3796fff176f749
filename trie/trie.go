// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package trie implements Indra's content-addressed radix-16 (nibble) trie
// (spec C5): an immutable, structurally-shared index from thought logical
// id to thought content hash. Every mutation returns a new root hash
// without touching the nodes reachable from any previously computed root,
// so a commit can reference last commit's root and only the nodes on the
// changed key's path are freshly written.
package trie

import (
	"fmt"

	"github.com/moonstripe/indra/hash"
	"github.com/moonstripe/indra/object"
)

// node is the on-disk (and in-memory, pre-hash) representation of one trie
// level. Children[i] is the zero hash when no child occupies nibble i.
// Value is the zero hash when no key terminates at this node.
type node struct {
	Children [16]hash.Hash `msgpack:"children"`
	Value    hash.Hash     `msgpack:"value"`
}

func (n node) isEmpty() bool {
	if !n.Value.IsZero() {
		return false
	}
	for _, c := range n.Children {
		if !c.IsZero() {
			return false
		}
	}
	return true
}

func loadNode(store *object.Store, h hash.Hash) (node, error) {
	if h.IsZero() {
		return node{}, nil
	}
	kind, canon, err := store.Get(h)
	if err != nil {
		return node{}, fmt.Errorf("trie: load node %s: %w", h, err)
	}
	if kind != hash.KindTrieNode {
		return node{}, fmt.Errorf("trie: node %s has unexpected kind %s", h, kind)
	}
	var n node
	if err := hash.Decode(canon, &n); err != nil {
		return node{}, fmt.Errorf("trie: decode node %s: %w", h, err)
	}
	return n, nil
}

func storeNode(store *object.Store, n node) (hash.Hash, error) {
	if n.isEmpty() {
		return hash.Zero, nil
	}
	canon, err := hash.Canonical(hash.KindTrieNode, n)
	if err != nil {
		return hash.Hash{}, fmt.Errorf("trie: canonicalize node: %w", err)
	}
	h, err := store.Put(hash.KindTrieNode, canon)
	if err != nil {
		return hash.Hash{}, fmt.Errorf("trie: store node: %w", err)
	}
	return h, nil
}

// nibbles splits id's bytes into a sequence of 4-bit nibbles, high nibble
// of each byte first. The trie path to a leaf is exactly the id's bytes,
// so ListAll can recover ids without storing them separately.
func nibbles(id string) []byte {
	b := []byte(id)
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, c>>4, c&0x0f)
	}
	return out
}

// nibblesToID is the inverse of nibbles. path must have even length.
func nibblesToID(path []byte) string {
	out := make([]byte, 0, len(path)/2)
	for i := 0; i+1 < len(path); i += 2 {
		out = append(out, path[i]<<4|path[i+1])
	}
	return string(out)
}

// Get looks up id's value hash under root. ok is false if id is absent.
func Get(store *object.Store, root hash.Hash, id string) (value hash.Hash, ok bool, err error) {
	path := nibbles(id)
	cur := root
	for _, nb := range path {
		if cur.IsZero() {
			return hash.Hash{}, false, nil
		}
		n, err := loadNode(store, cur)
		if err != nil {
			return hash.Hash{}, false, err
		}
		cur = n.Children[nb]
	}
	if cur.IsZero() {
		return hash.Hash{}, false, nil
	}
	n, err := loadNode(store, cur)
	if err != nil {
		return hash.Hash{}, false, err
	}
	if n.Value.IsZero() {
		return hash.Hash{}, false, nil
	}
	return n.Value, true, nil
}

// Insert writes id -> value into the trie rooted at root and returns the
// new root hash. root may be hash.Zero for an empty trie. Nodes along the
// path from root to the leaf are rewritten; every other subtree is shared
// unchanged with the old root, bounding the number of new nodes per
// insert to len(path)+1.
func Insert(store *object.Store, root hash.Hash, id string, value hash.Hash) (hash.Hash, error) {
	if value.IsZero() {
		return hash.Hash{}, fmt.Errorf("trie: cannot insert zero value hash for id %q", id)
	}
	return insertAt(store, root, nibbles(id), value)
}

func insertAt(store *object.Store, cur hash.Hash, path []byte, value hash.Hash) (hash.Hash, error) {
	n, err := loadNode(store, cur)
	if err != nil {
		return hash.Hash{}, err
	}
	if len(path) == 0 {
		n.Value = value
		return storeNode(store, n)
	}
	childHash, err := insertAt(store, n.Children[path[0]], path[1:], value)
	if err != nil {
		return hash.Hash{}, err
	}
	n.Children[path[0]] = childHash
	return storeNode(store, n)
}

// Remove deletes id from the trie rooted at root and returns the new root
// hash. Nodes left empty (no value, no children) by the removal collapse
// out of the tree rather than persisting as dead branches. Removing an
// absent id is a no-op that returns root unchanged.
func Remove(store *object.Store, root hash.Hash, id string) (hash.Hash, error) {
	return removeAt(store, root, nibbles(id))
}

func removeAt(store *object.Store, cur hash.Hash, path []byte) (hash.Hash, error) {
	if cur.IsZero() {
		return hash.Zero, nil
	}
	n, err := loadNode(store, cur)
	if err != nil {
		return hash.Hash{}, err
	}
	if len(path) == 0 {
		n.Value = hash.Zero
	} else {
		childHash, err := removeAt(store, n.Children[path[0]], path[1:])
		if err != nil {
			return hash.Hash{}, err
		}
		n.Children[path[0]] = childHash
	}
	return storeNode(store, n)
}

// Entry is one (id, value) pair yielded by ListAll.
type Entry struct {
	ID    string
	Value hash.Hash
}

// ListAll walks every key reachable from root in ascending nibble order,
// which is equivalent to ascending byte-lexicographic order of the ids.
func ListAll(store *object.Store, root hash.Hash) ([]Entry, error) {
	var out []Entry
	if err := walk(store, root, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(store *object.Store, cur hash.Hash, path []byte, out *[]Entry) error {
	if cur.IsZero() {
		return nil
	}
	n, err := loadNode(store, cur)
	if err != nil {
		return err
	}
	if !n.Value.IsZero() {
		*out = append(*out, Entry{ID: nibblesToID(path), Value: n.Value})
	}
	for i := 0; i < 16; i++ {
		if n.Children[i].IsZero() {
			continue
		}
		if err := walk(store, n.Children[i], append(path, byte(i)), out); err != nil {
			return err
		}
	}
	return nil
}
