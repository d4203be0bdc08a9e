// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/boldos/bold/cmd/bold/cli"
)

type installParams struct {
	globalParams
}

func installCommand(streams Streams) *cli.Command {
	var params installParams
	return &cli.Command{
		Name:    "install",
		Summary: "Install packages into a new generation",
		Description: `Resolve each package against the current generation's index and
install it together with its dependencies. A plain name follows the
repository on later updates; name@hash pins that exact build.`,
		Usage: "bold install [flags] <package>...",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("install", &params)
		},
		Examples: []cli.Example{
			{Description: "Install the current curl", Command: "bold install curl"},
			{Description: "Install several packages at once", Command: "bold install curl jq"},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return cli.Validation("at least one package is required")
			}
			packageManager, err := params.open(streams, openOptions{})
			if err != nil {
				return categorize(err)
			}
			result, err := packageManager.Install(ctx, args)
			if err != nil {
				return categorize(err)
			}
			if !result.Changed() {
				fmt.Fprintln(streams.Stdout, "All requested packages already installed")
				return nil
			}
			for _, ref := range result.Added {
				fmt.Fprintf(streams.Stdout, "+ %s\n", ref)
			}
			fmt.Fprintf(streams.Stdout, "Generation %d is now current\n", result.Generation)
			return nil
		},
	}
}
