// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moonstripe/indra/indra"
)

func newRelateCmd() *cobra.Command {
	var edgeType string
	var weight float64
	var metadata map[string]string
	cmd := &cobra.Command{
		Use:   "relate <src> <tgt>",
		Short: "stage a directed edge between two thoughts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Relate(args[0], args[1], edgeType, weight, metadata); err != nil {
				return err
			}
			return printResult(map[string]string{"related": args[0] + " -> " + args[1]}, func() string {
				return fmt.Sprintf("%s -[%s]-> %s", args[0], edgeType, args[1])
			})
		},
	}
	cmd.Flags().StringVarP(&edgeType, "type", "t", "related", "edge type")
	cmd.Flags().Float64VarP(&weight, "weight", "w", 1.0, "edge weight")
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "metadata key=value (repeatable)")
	return cmd
}

func newUnrelateCmd() *cobra.Command {
	var edgeType string
	cmd := &cobra.Command{
		Use:   "unrelate <src> <tgt>",
		Short: "stage an edge's removal (idempotent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Unrelate(args[0], args[1], edgeType); err != nil {
				return err
			}
			return printResult(map[string]string{"unrelated": args[0] + " -> " + args[1]}, func() string {
				return fmt.Sprintf("unrelated %s -[%s]-> %s", args[0], edgeType, args[1])
			})
		},
	}
	cmd.Flags().StringVarP(&edgeType, "type", "t", "related", "edge type")
	return cmd
}

func newNeighborsCmd() *cobra.Command {
	var direction string
	cmd := &cobra.Command{
		Use:   "neighbors <id>",
		Short: "list a thought's neighbors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := parseDirection(direction)
			if err != nil {
				return err
			}
			neighbors, err := db.Neighbors(args[0], dir)
			if err != nil {
				return err
			}
			type neighborView struct {
				Thought thoughtView `json:"thought"`
				Edge    edgeView    `json:"edge"`
			}
			views := make([]neighborView, len(neighbors))
			for i, n := range neighbors {
				views[i] = neighborView{Thought: newThoughtView(n.Thought), Edge: newEdgeView(n.Edge)}
			}
			return printResult(views, func() string {
				var out string
				for _, v := range views {
					out += fmt.Sprintf("%s (%s)\n", v.Thought.ID, v.Edge.EdgeType)
				}
				return out
			})
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "both", "in|out|both")
	return cmd
}

func parseDirection(s string) (indra.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return indra.Incoming, nil
	case "out":
		return indra.Outgoing, nil
	case "both", "":
		return indra.Both, nil
	default:
		return 0, fmt.Errorf("indra: invalid direction %q, want in|out|both", s)
	}
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "brute-force cosine similarity search over thought embeddings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := db.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			views := make([]searchResultView, len(results))
			for i, r := range results {
				views[i] = newSearchResultView(r)
			}
			return printResult(views, func() string {
				var out string
				for _, v := range views {
					out += fmt.Sprintf("%.4f %s: %s\n", v.Score, v.Thought.ID, v.Thought.Content)
				}
				return out
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "maximum number of results")
	return cmd
}
