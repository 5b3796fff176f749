// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package indra

import "time"

// Relate stages a directed edge src -> tgt of the given type, weight, and
// optional metadata (spec C8). Both endpoints must already exist; an
// identical (src, tgt, type) edge with the same weight and metadata is a
// no-op, a different weight or metadata updates it (SPEC_FULL.md §5(b): a
// new Edge object, old one stays reachable by hash only).
func (d *Database) Relate(src, tgt, edgeType string, weight float64, metadata map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok, err := d.resolveThoughtLocked(src); err != nil {
		return err
	} else if !ok {
		return newErr(KindEdgeEndpointMissing, nil, "source %q", src)
	}
	if _, ok, err := d.resolveThoughtLocked(tgt); err != nil {
		return err
	} else if !ok {
		return newErr(KindEdgeEndpointMissing, nil, "target %q", tgt)
	}

	key := edgeKey{Source: src, Target: tgt, Type: edgeType}
	if existing, ok, err := d.resolveEdgeLocked(key); err != nil {
		return err
	} else if ok && existing.Weight == weight && stringMapsEqual(existing.Metadata, metadata) {
		return nil
	}

	d.pending.edges[key] = Edge{SourceID: src, TargetID: tgt, Type: edgeType, Weight: weight, Metadata: metadata, CreatedAt: time.Now().UTC()}
	delete(d.pending.deletedEdges, key)

	return d.maybeAutoCommit("relate " + src + " " + tgt + " " + edgeType)
}

// Unrelate stages removal of the (src, tgt, type) edge. Idempotent: a
// missing edge is not an error.
func (d *Database) Unrelate(src, tgt, edgeType string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := edgeKey{Source: src, Target: tgt, Type: edgeType}
	if _, ok, err := d.resolveEdgeLocked(key); err != nil {
		return err
	} else if !ok {
		return nil
	}

	delete(d.pending.edges, key)
	d.pending.deletedEdges[key] = true

	return d.maybeAutoCommit("unrelate " + src + " " + tgt + " " + edgeType)
}

// resolveEdgeLocked returns the merged view of the edge identified by key.
func (d *Database) resolveEdgeLocked(key edgeKey) (Edge, bool, error) {
	if d.pending.deletedEdges[key] {
		return Edge{}, false, nil
	}
	if e, ok := d.pending.edges[key]; ok {
		return e, true, nil
	}

	snap, err := d.headSnapshot()
	if err != nil {
		return Edge{}, false, err
	}
	for _, eh := range snap.Edges {
		e, err := d.loadEdgeByHash(eh)
		if err != nil {
			return Edge{}, false, err
		}
		if keyOf(e) == key {
			return e, true, nil
		}
	}
	return Edge{}, false, nil
}

// mergedEdgesLocked returns every active edge in the working-set+HEAD
// view.
func (d *Database) mergedEdgesLocked() ([]Edge, error) {
	active := make(map[edgeKey]Edge)

	snap, err := d.headSnapshot()
	if err != nil {
		return nil, err
	}
	for _, eh := range snap.Edges {
		e, err := d.loadEdgeByHash(eh)
		if err != nil {
			return nil, err
		}
		active[keyOf(e)] = e
	}
	for key, e := range d.pending.edges {
		active[key] = e
	}
	for key := range d.pending.deletedEdges {
		delete(active, key)
	}

	out := make([]Edge, 0, len(active))
	for _, e := range active {
		out = append(out, e)
	}
	return out, nil
}

// Neighbors returns every (neighbor thought, edge) pair matching dir
// relative to id (spec C8).
func (d *Database) Neighbors(id string, dir Direction) ([]NeighborEdge, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok, err := d.resolveThoughtLocked(id); err != nil {
		return nil, err
	} else if !ok {
		return nil, newErr(KindNotFound, nil, "thought %q", id)
	}

	edges, err := d.mergedEdgesLocked()
	if err != nil {
		return nil, err
	}

	var out []NeighborEdge
	for _, e := range edges {
		if e.SourceID == id && (dir == Outgoing || dir == Both) {
			if t, ok, err := d.resolveThoughtLocked(e.TargetID); err == nil && ok {
				out = append(out, NeighborEdge{Thought: t, Edge: e, Dir: Outgoing})
			}
		}
		if e.TargetID == id && (dir == Incoming || dir == Both) {
			if t, ok, err := d.resolveThoughtLocked(e.SourceID); err == nil && ok {
				out = append(out, NeighborEdge{Thought: t, Edge: e, Dir: Incoming})
			}
		}
	}
	return out, nil
}

// adjacencyLocked builds an undirected (Both-direction) neighbor-id list per
// thought id, used by BFS/ShortestPath.
func (d *Database) adjacencyLocked() (map[string][]string, error) {
	edges, err := d.mergedEdgesLocked()
	if err != nil {
		return nil, err
	}
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
		adj[e.TargetID] = append(adj[e.TargetID], e.SourceID)
	}
	return adj, nil
}

// BFS returns breadth-first layers from id using Both direction, up to
// maxDepth (inclusive). Layer 0 is [id] itself.
func (d *Database) BFS(id string, maxDepth int) ([][]Thought, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok, err := d.resolveThoughtLocked(id); err != nil {
		return nil, err
	} else if !ok {
		return nil, newErr(KindNotFound, nil, "thought %q", id)
	}

	adj, err := d.adjacencyLocked()
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{id: true}
	layers := [][]string{{id}}
	frontier := []string{id}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, cur := range frontier {
			for _, nb := range adj[cur] {
				if !visited[nb] {
					visited[nb] = true
					next = append(next, nb)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		layers = append(layers, next)
		frontier = next
	}

	out := make([][]Thought, len(layers))
	for i, layer := range layers {
		for _, nid := range layer {
			if t, ok, err := d.resolveThoughtLocked(nid); err == nil && ok {
				out[i] = append(out[i], t)
			}
		}
	}
	return out, nil
}

// ShortestPath returns the unweighted shortest sequence of thoughts from
// src to tgt, or NotFound if no path exists.
func (d *Database) ShortestPath(src, tgt string) ([]Thought, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok, err := d.resolveThoughtLocked(src); err != nil {
		return nil, err
	} else if !ok {
		return nil, newErr(KindNotFound, nil, "thought %q", src)
	}
	if _, ok, err := d.resolveThoughtLocked(tgt); err != nil {
		return nil, err
	} else if !ok {
		return nil, newErr(KindNotFound, nil, "thought %q", tgt)
	}

	adj, err := d.adjacencyLocked()
	if err != nil {
		return nil, err
	}

	prev := map[string]string{src: ""}
	queue := []string{src}
	found := src == tgt

	for i := 0; i < len(queue) && !found; i++ {
		cur := queue[i]
		for _, nb := range adj[cur] {
			if _, seen := prev[nb]; seen {
				continue
			}
			prev[nb] = cur
			if nb == tgt {
				found = true
				break
			}
			queue = append(queue, nb)
		}
	}

	if !found {
		return nil, newErr(KindNotFound, nil, "no path from %q to %q", src, tgt)
	}

	var ids []string
	for cur := tgt; cur != ""; cur = prev[cur] {
		ids = append([]string{cur}, ids...)
		if cur == src {
			break
		}
	}

	out := make([]Thought, 0, len(ids))
	for _, id := range ids {
		t, _, err := d.resolveThoughtLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
