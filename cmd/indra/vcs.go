// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "fold the working set into a new commit on the current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := db.Commit(message)
			if err != nil {
				return err
			}
			return printResult(map[string]string{"commit": h.String()}, func() string {
				return h.String()
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}

func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "show the commit history from HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := db.Log("")
			if err != nil {
				return err
			}
			views := make([]commitView, len(entries))
			for i, e := range entries {
				views[i] = newCommitView(e)
			}
			return printResult(views, func() string {
				var out string
				for _, v := range views {
					out += fmt.Sprintf("%s %s\n", v.Hash, v.Message)
				}
				return out
			})
		},
	}
}

func newBranchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branch <name>",
		Short: "create a new branch pointing at the current HEAD commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Branch(args[0]); err != nil {
				return err
			}
			return printResult(map[string]string{"branch": args[0]}, func() string {
				return fmt.Sprintf("created branch %s", args[0])
			})
		},
	}
}

func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <ref>",
		Short: "switch HEAD to a branch name or commit hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Checkout(args[0]); err != nil {
				return err
			}
			return printResult(map[string]string{"checked_out": args[0]}, func() string {
				return fmt.Sprintf("switched to %s", args[0])
			})
		},
	}
}

func newBranchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branches",
		Short: "list every branch name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := db.Branches()
			return printResult(names, func() string {
				var out string
				for _, n := range names {
					out += n + "\n"
				}
				return out
			})
		},
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [from] [to]",
		Short: "compare two refs (branch name or commit hash)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := "", ""
			switch len(args) {
			case 0:
				from, to = "", ""
			case 1:
				from = args[0]
			case 2:
				from, to = args[0], args[1]
			}
			d, err := db.Diff(from, to)
			if err != nil {
				return err
			}
			return printResult(d, func() string {
				return fmt.Sprintf(
					"added=%d removed=%d modified=%d edges_added=%d edges_removed=%d",
					len(d.ThoughtsAdded), len(d.ThoughtsRemoved), len(d.ThoughtsModified),
					len(d.EdgesAdded), len(d.EdgesRemoved))
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "report the working set's staged change counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := db.Status()
			return printResult(report, func() string {
				return fmt.Sprintf(
					"thoughts: +%d ~%d -%d  edges: +%d -%d",
					report.ThoughtsCreated, report.ThoughtsUpdated, report.ThoughtsDeleted,
					report.EdgesAdded, report.EdgesRemoved)
			})
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "walk every ref and confirm every reachable object resolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Verify(); err != nil {
				return err
			}
			return printResult(map[string]bool{"ok": true}, func() string { return "ok" })
		},
	}
}
