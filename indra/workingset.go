// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package indra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moonstripe/indra/embed"
	"github.com/moonstripe/indra/trie"
)

// CreateThought stages a new thought. It fails with AlreadyExists if id
// is already known (in either the working set or HEAD). An empty id is
// InvalidArgument. metadata is optional free-form key/value data
// (spec.md §3) and may be nil.
func (d *Database) CreateThought(ctx context.Context, id, content string, metadata map[string]string) (Thought, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id == "" {
		return Thought{}, newErr(KindInvalidArgument, nil, "id must not be empty")
	}

	if _, ok, err := d.resolveThoughtLocked(id); err != nil {
		return Thought{}, err
	} else if ok {
		return Thought{}, newErr(KindAlreadyExists, nil, "thought %q already exists", id)
	}

	now := time.Now().UTC()
	t := Thought{ID: id, Content: content, Metadata: metadata, CreatedAt: now, UpdatedAt: now}

	if d.embedder != nil {
		vec, err := embed.EmbedOne(ctx, d.embedder, content)
		if err != nil {
			if errors.Is(err, embed.ErrDimensionMismatch) {
				return Thought{}, newErr(KindDimensionMismatch, err, "embed %q", id)
			}
			return Thought{}, newErr(KindEmbedderFailed, err, "embed %q", id)
		}
		t.Embedding = vec
		t.Model = d.embedder.ModelName()
	}

	d.pending.thoughts[id] = t
	delete(d.pending.deletedThoughts, id)

	if err := d.maybeAutoCommit(fmt.Sprintf("create %s", id)); err != nil {
		return Thought{}, err
	}
	return t, nil
}

// GetThought returns the merged working-set+HEAD view of id.
func (d *Database) GetThought(id string) (Thought, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok, err := d.resolveThoughtLocked(id)
	if err != nil {
		return Thought{}, err
	}
	if !ok {
		return Thought{}, newErr(KindNotFound, nil, "thought %q", id)
	}
	return t, nil
}

// UpdateThought stages a content update for id, optionally replacing its
// metadata (nil leaves metadata unchanged). Per SPEC_FULL.md §5(a), if
// content and metadata are both unchanged from the current value, this is
// a true no-op: no new object, UpdatedAt unchanged.
func (d *Database) UpdateThought(ctx context.Context, id, content string, metadata map[string]string) (Thought, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok, err := d.resolveThoughtLocked(id)
	if err != nil {
		return Thought{}, err
	}
	if !ok {
		return Thought{}, newErr(KindNotFound, nil, "thought %q", id)
	}

	newMetadata := current.Metadata
	if metadata != nil {
		newMetadata = metadata
	}

	if current.Content == content && stringMapsEqual(current.Metadata, newMetadata) {
		return current, nil
	}

	updated := current
	updated.Content = content
	updated.Metadata = newMetadata
	updated.UpdatedAt = time.Now().UTC()

	if d.embedder != nil {
		vec, err := embed.EmbedOne(ctx, d.embedder, content)
		if err != nil {
			if errors.Is(err, embed.ErrDimensionMismatch) {
				return Thought{}, newErr(KindDimensionMismatch, err, "embed %q", id)
			}
			return Thought{}, newErr(KindEmbedderFailed, err, "embed %q", id)
		}
		updated.Embedding = vec
		updated.Model = d.embedder.ModelName()
	}

	d.pending.thoughts[id] = updated

	if err := d.maybeAutoCommit(fmt.Sprintf("update %s", id)); err != nil {
		return Thought{}, err
	}
	return updated, nil
}

// DeleteThought stages id's removal. Fails with NotFound if id doesn't
// exist in the merged view.
func (d *Database) DeleteThought(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok, err := d.resolveThoughtLocked(id); err != nil {
		return err
	} else if !ok {
		return newErr(KindNotFound, nil, "thought %q", id)
	}

	delete(d.pending.thoughts, id)
	d.pending.deletedThoughts[id] = true

	return d.maybeAutoCommit(fmt.Sprintf("delete %s", id))
}

// ListThoughts returns every thought in the merged working-set+HEAD view,
// sorted by id.
func (d *Database) ListThoughts() ([]Thought, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids, err := d.mergedThoughtIDsLocked()
	if err != nil {
		return nil, err
	}

	out := make([]Thought, 0, len(ids))
	for _, id := range ids {
		t, ok, err := d.resolveThoughtLocked(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// resolveThoughtLocked returns the merged view of id: pending deletion
// shadows everything, then the working set, then HEAD.
func (d *Database) resolveThoughtLocked(id string) (Thought, bool, error) {
	if d.pending.deletedThoughts[id] {
		return Thought{}, false, nil
	}
	if t, ok := d.pending.thoughts[id]; ok {
		return t, true, nil
	}

	snap, err := d.headSnapshot()
	if err != nil {
		return Thought{}, false, err
	}
	if snap.TrieRoot.IsZero() {
		return Thought{}, false, nil
	}
	h, ok, err := trie.Get(d.store, snap.TrieRoot, id)
	if err != nil {
		return Thought{}, false, newErr(KindCorrupt, err, "trie lookup %q", id)
	}
	if !ok {
		return Thought{}, false, nil
	}
	t, err := d.loadThoughtByHash(h)
	if err != nil {
		return Thought{}, false, err
	}
	return t, true, nil
}

func (d *Database) mergedThoughtIDsLocked() ([]string, error) {
	ids := make(map[string]bool)

	snap, err := d.headSnapshot()
	if err != nil {
		return nil, err
	}
	if !snap.TrieRoot.IsZero() {
		entries, err := trie.ListAll(d.store, snap.TrieRoot)
		if err != nil {
			return nil, newErr(KindCorrupt, err, "list trie")
		}
		for _, e := range entries {
			ids[e.ID] = true
		}
	}
	for id := range d.pending.thoughts {
		ids[id] = true
	}
	for id := range d.pending.deletedThoughts {
		delete(ids, id)
	}

	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sortStrings(out)
	return out, nil
}

// Status reports the working set's staged change counts (SUPPLEMENTED
// feature, modeled on the teacher's Tracker/SnapshotDiff.TotalChanges).
func (d *Database) Status() StatusReport {
	d.mu.Lock()
	defer d.mu.Unlock()

	var report StatusReport
	for id := range d.pending.thoughts {
		if _, existedBefore, _ := d.existedAtHeadLocked(id); existedBefore {
			report.ThoughtsUpdated++
		} else {
			report.ThoughtsCreated++
		}
	}
	report.ThoughtsDeleted = len(d.pending.deletedThoughts)

	for _, e := range d.pending.edges {
		_ = e
		report.EdgesAdded++
	}
	report.EdgesRemoved = len(d.pending.deletedEdges)

	return report
}

func (d *Database) existedAtHeadLocked(id string) (Thought, bool, error) {
	snap, err := d.headSnapshot()
	if err != nil {
		return Thought{}, false, err
	}
	if snap.TrieRoot.IsZero() {
		return Thought{}, false, nil
	}
	h, ok, err := trie.Get(d.store, snap.TrieRoot, id)
	if err != nil || !ok {
		return Thought{}, false, err
	}
	t, err := d.loadThoughtByHash(h)
	return t, true, err
}

// maybeAutoCommit commits the working set with a synthesized message when
// auto_commit mode is on (spec C7's default).
func (d *Database) maybeAutoCommit(message string) error {
	if !d.autoCommit {
		return nil
	}
	_, err := d.commitLocked(message)
	return err
}
