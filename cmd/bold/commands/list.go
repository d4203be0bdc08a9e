// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/boldos/bold/cmd/bold/cli"
	"github.com/boldos/bold/lib/manager"
)

type listParams struct {
	globalParams
	cli.JSONOutput
	Installed bool `flag:"installed" desc:"only packages of the current generation"`
	Manually  bool `flag:"manually" desc:"only packages installed on request"`
	Lines     bool `flag:"lines" desc:"one line per package, without descriptions"`
}

func listCommand(streams Streams) *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List packages of the index",
		Description: `List the packages of the current generation's index, tagged
"installed" when they are part of the generation and "manually" when
they were requested rather than pulled in as dependencies. An optional
argument keeps only packages whose name contains it. Exits with status
1 when nothing matches.`,
		Usage: "bold list [flags] [filter]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Examples: []cli.Example{
			{Description: "Show what was installed on request", Command: "bold list --manually"},
			{Description: "Find packages with ssl in the name", Command: "bold list --lines ssl"},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 1 {
				return cli.Validation("list takes at most one filter (got %d)", len(args))
			}
			options := manager.ListOptions{Installed: params.Installed, Manually: params.Manually}
			if len(args) == 1 {
				options.Filter = args[0]
			}
			packageManager, err := params.open(streams, openOptions{})
			if err != nil {
				return categorize(err)
			}
			entries, err := packageManager.List(ctx, options)
			if err != nil {
				return categorize(err)
			}

			if done, err := params.EmitJSON(streams.Stdout, entries); done {
				if err != nil {
					return err
				}
			} else {
				printEntries(streams, entries, params.Lines)
			}
			if len(entries) == 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func printEntries(streams Streams, entries []manager.ListEntry, lines bool) {
	for _, entry := range entries {
		line := entry.Ref.String()
		if tags := entry.Tags(); len(tags) > 0 {
			line += " [" + strings.Join(tags, ",") + "]"
		}
		fmt.Fprintln(streams.Stdout, line)
		if lines {
			continue
		}
		if entry.ShortDesc != "" {
			fmt.Fprintf(streams.Stdout, "  %s\n", entry.ShortDesc)
		}
		fmt.Fprintln(streams.Stdout)
	}
}
