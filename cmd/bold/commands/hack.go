// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/boldos/bold/cmd/bold/cli"
	"github.com/boldos/bold/lib/manager"
)

type hackParams struct {
	globalParams
	Workspace string `flag:"workspace,w" desc:"workspace directory (default <package>-workspace)"`
}

func hackCommand(streams Streams) *cli.Command {
	var params hackParams
	return &cli.Command{
		Name:    "hack",
		Summary: "Create a development workspace for packages",
		Description: `Create a workspace with the sources of the selected packages and their
dependencies, unpack and patch the first package, and write an
activate.sh that exposes the build phases as shell functions.`,
		Usage: "bold hack [flags] <package>...",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("hack", &params)
		},
		Examples: []cli.Example{
			{Description: "Hack on curl in ./curl-workspace", Command: "bold hack curl"},
			{Description: "Choose the workspace directory", Command: "bold hack --workspace /tmp/ws curl libssl"},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return cli.Validation("at least one package is required")
			}
			packageManager, err := params.open(streams, openOptions{})
			if err != nil {
				return categorize(err)
			}
			result, err := packageManager.Hack(ctx, args, manager.HackOptions{Workspace: params.Workspace})
			if err != nil {
				return categorize(err)
			}
			for _, skipped := range result.Skipped {
				fmt.Fprintf(streams.Stderr, "WARNING: %v\n", skipped)
			}
			for _, ref := range result.Packages {
				fmt.Fprintf(streams.Stdout, "  %s\n", ref)
			}
			fmt.Fprintf(streams.Stdout, "Workspace ready at %s\nRun `source %s` to enter it.\n",
				result.Workspace.Dir, result.Workspace.ActivateScript())
			return nil
		},
	}
}
