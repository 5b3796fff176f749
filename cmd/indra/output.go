// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/moonstripe/indra/indra"
)

// thoughtView is the stable JSON schema from spec.md §6:
// {id, content, embedding?, created_at, updated_at, metadata}.
type thoughtView struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Embedding []float32              `json:"embedding,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata"`
}

func newThoughtView(t indra.Thought) thoughtView {
	return thoughtView{
		ID:        t.ID,
		Content:   t.Content,
		Embedding: t.Embedding,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Metadata:  stringMapToAny(t.Metadata),
	}
}

// edgeView is the stable JSON schema from spec.md §6:
// {source_id, target_id, edge_type, weight, created_at, metadata}.
type edgeView struct {
	SourceID  string                 `json:"source_id"`
	TargetID  string                 `json:"target_id"`
	EdgeType  string                 `json:"edge_type"`
	Weight    float64                `json:"weight"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata"`
}

func newEdgeView(e indra.Edge) edgeView {
	return edgeView{
		SourceID:  e.SourceID,
		TargetID:  e.TargetID,
		EdgeType:  e.Type,
		Weight:    e.Weight,
		CreatedAt: e.CreatedAt,
		Metadata:  stringMapToAny(e.Metadata),
	}
}

// stringMapToAny renders a thought/edge's string metadata as the
// map[string]interface{} the stable JSON schema (spec.md §6) expects.
func stringMapToAny(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// commitView is the stable JSON schema from spec.md §6:
// {hash, parents[], message, author, timestamp, tree}.
type commitView struct {
	Hash      string    `json:"hash"`
	Parents   []string  `json:"parents"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Tree      string    `json:"tree"`
}

func newCommitView(entry indra.LogEntry) commitView {
	var parents []string
	if !entry.Commit.Parent.IsZero() {
		parents = []string{entry.Commit.Parent.String()}
	}
	return commitView{
		Hash:      entry.Hash.String(),
		Parents:   parents,
		Message:   entry.Commit.Message,
		Author:    entry.Commit.Author,
		Timestamp: entry.Commit.Timestamp,
		Tree:      entry.Commit.Snapshot.String(),
	}
}

// searchResultView is the stable JSON schema from spec.md §6:
// {thought, score}.
type searchResultView struct {
	Thought thoughtView `json:"thought"`
	Score   float64     `json:"score"`
}

func newSearchResultView(r indra.SearchResult) searchResultView {
	return searchResultView{Thought: newThoughtView(r.Thought), Score: r.Score}
}

// printResult renders v as pretty JSON (format=json) or via toText
// (format=text).
func printResult(v interface{}, toText func() string) error {
	if format == "text" {
		fmt.Fprintln(os.Stdout, toText())
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
