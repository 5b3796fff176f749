// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "create (or open) the database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(map[string]string{"database": dbPath}, func() string {
				return fmt.Sprintf("initialized %s", dbPath)
			})
		},
	}
}

func newCreateCmd() *cobra.Command {
	var id string
	var metadata map[string]string
	cmd := &cobra.Command{
		Use:   "create <content>",
		Short: "stage a new thought",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = uuid.NewString()
			}
			t, err := db.CreateThought(cmd.Context(), id, args[0], metadata)
			if err != nil {
				return err
			}
			v := newThoughtView(t)
			return printResult(v, func() string {
				return fmt.Sprintf("%s: %s", v.ID, v.Content)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "thought id (random uuid if omitted)")
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "metadata key=value (repeatable)")
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "read a thought by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := db.GetThought(args[0])
			if err != nil {
				return err
			}
			v := newThoughtView(t)
			return printResult(v, func() string {
				return fmt.Sprintf("%s: %s", v.ID, v.Content)
			})
		},
	}
}

func newUpdateCmd() *cobra.Command {
	var metadata map[string]string
	cmd := &cobra.Command{
		Use:   "update <id> <content>",
		Short: "stage a content update for a thought",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := db.UpdateThought(cmd.Context(), args[0], args[1], metadata)
			if err != nil {
				return err
			}
			v := newThoughtView(t)
			return printResult(v, func() string {
				return fmt.Sprintf("%s: %s", v.ID, v.Content)
			})
		},
	}
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "metadata key=value (repeatable); unset leaves existing metadata unchanged")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "stage a thought's removal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.DeleteThought(args[0]); err != nil {
				return err
			}
			return printResult(map[string]string{"deleted": args[0]}, func() string {
				return fmt.Sprintf("deleted %s", args[0])
			})
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list every thought in the merged working-set+HEAD view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			thoughts, err := db.ListThoughts()
			if err != nil {
				return err
			}
			views := make([]thoughtView, len(thoughts))
			for i, t := range thoughts {
				views[i] = newThoughtView(t)
			}
			return printResult(views, func() string {
				var out string
				for _, v := range views {
					out += fmt.Sprintf("%s: %s\n", v.ID, v.Content)
				}
				return out
			})
		},
	}
}
