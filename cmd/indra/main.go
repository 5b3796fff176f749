// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command indra is the CLI surface of spec.md §6: a thin adapter over the
// indra package's Database contract.
package main

import (
	"fmt"
	"os"

	"github.com/moonstripe/indra/indra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		emitError(err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func emitError(err error) {
	kind := indra.KindOf(err)
	if kind == "" {
		kind = "InvalidArgument"
	}
	if format == "json" {
		fmt.Fprintf(os.Stdout, "{\"error\": %q}\n", err.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", kind, err.Error())
}
