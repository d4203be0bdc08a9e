// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/boldos/bold/cmd/bold/cli"
)

type removeParams struct {
	globalParams
}

func removeCommand(streams Streams) *cli.Command {
	var params removeParams
	return &cli.Command{
		Name:    "remove",
		Summary: "Remove installed packages",
		Description: `Remove packages from the installed set, together with dependencies
that no remaining package needs, and commit a new generation. Every
package must be installed. A package another installed package still
depends on stays installed as a dependency.`,
		Usage: "bold remove [flags] <package>...",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("remove", &params)
		},
		Examples: []cli.Example{
			{Description: "Remove curl and its unused dependencies", Command: "bold remove curl"},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return cli.Validation("at least one package is required")
			}
			packageManager, err := params.open(streams, openOptions{})
			if err != nil {
				return categorize(err)
			}
			result, err := packageManager.Remove(ctx, args)
			if err != nil {
				return categorize(err)
			}
			for _, ref := range result.Unrequested {
				fmt.Fprintf(streams.Stderr, "WARNING: %s was not installed manually\n", ref)
			}
			for _, ref := range result.Retained {
				fmt.Fprintf(streams.Stderr, "%s is still needed by other packages and stays installed\n", ref)
			}
			for _, ref := range result.Removed {
				fmt.Fprintf(streams.Stdout, "- %s\n", ref)
			}
			if result.Generation != 0 {
				fmt.Fprintf(streams.Stdout, "Generation %d is now current\n", result.Generation)
			}
			return nil
		},
	}
}
