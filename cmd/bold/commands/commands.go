// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the bold command tree: update, install,
// remove, hack, list, generations, switch and version. Each command
// loads the configuration, assembles the library stack for the root
// it names and calls one [manager.Manager] operation.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/boldos/bold/cmd/bold/cli"
	"github.com/boldos/bold/lib/version"
)

// Streams are the writers commands print to. Results go to Stdout;
// warnings, build output and logs go to Stderr.
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Root builds the complete command tree.
func Root(streams Streams) *cli.Command {
	return &cli.Command{
		Name: "bold",
		Description: `bold: a source-based package manager.

Packages are described by a local package repository, built from
source or fetched from binary caches, and installed into numbered
generations. Every change produces a new generation; the previous one
stays available for switching back.`,
		HelpOutput: streams.Stdout,
		Subcommands: []*cli.Command{
			updateCommand(streams),
			installCommand(streams),
			removeCommand(streams),
			hackCommand(streams),
			listCommand(streams),
			generationsCommand(streams),
			switchCommand(streams),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string) error {
					if len(args) > 0 {
						return cli.Validation("version takes no arguments")
					}
					fmt.Fprintf(streams.Stdout, "bold %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Build the package index from the local repository",
				Command:     "bold update",
			},
			{
				Description: "Install a package and its dependencies",
				Command:     "bold install curl",
			},
			{
				Description: "Install an exact package identity",
				Command:     "bold install curl@1mfh8f9wyq0hwvx2dw4crvq4fcx0vqxr",
			},
			{
				Description: "Open a development workspace for a package",
				Command:     "bold hack --workspace ~/src/curl-ws curl",
			},
			{
				Description: "Return to an earlier generation",
				Command:     "bold switch 3",
			},
		},
	}
}
