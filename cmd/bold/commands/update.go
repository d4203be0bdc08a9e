// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/pflag"

	"github.com/boldos/bold/cmd/bold/cli"
	"github.com/boldos/bold/lib/manager"
)

type updateParams struct {
	globalParams
	FromFile string `flag:"from-file" desc:"read the repository document from a file instead of running the evaluator"`
	Check    bool   `flag:"check" desc:"only report whether an update is available"`
}

func updateCommand(streams Streams) *cli.Command {
	var params updateParams
	return &cli.Command{
		Name:    "update",
		Summary: "Rebuild the package index from the package repository",
		Description: `Evaluate the local package repository and, when it changed since the
current generation, commit a new generation built from it. Packages
requested by name are re-resolved against the new index, so they
follow the repository. The configured system's packages are installed
as well.`,
		Usage: "bold update [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("update", &params)
		},
		Examples: []cli.Example{
			{Description: "Update from the configured repository", Command: "bold update"},
			{Description: "Check without committing", Command: "bold update --check"},
			{Description: "Update from a saved repository document", Command: "bold update --from-file repo.jsonc"},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("update takes no arguments (got %q)", args[0])
			}
			packageManager, err := params.open(streams, openOptions{evaluator: params.FromFile == ""})
			if err != nil {
				return categorize(err)
			}
			result, err := packageManager.Update(ctx, manager.UpdateOptions{
				DocumentPath: params.FromFile,
				Check:        params.Check,
			})
			if err != nil {
				return categorize(err)
			}
			printUpdate(streams, result, params.Check)
			return nil
		},
	}
}

func printUpdate(streams Streams, result manager.UpdateResult, check bool) {
	if result.UpToDate {
		fmt.Fprintln(streams.Stdout, "No updates available")
		return
	}
	if check {
		fmt.Fprintf(streams.Stdout, "Update available (repository %s)\n", result.RepoHash)
		return
	}
	for _, ref := range result.SystemAdded {
		fmt.Fprintf(streams.Stdout, "+ %s\n", ref)
	}
	for _, ref := range result.SystemRemoved {
		fmt.Fprintf(streams.Stdout, "- %s\n", ref)
	}
	names := make([]string, 0, len(result.Changed))
	for name := range result.Changed {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(streams.Stdout, "%s -> %s\n", name, result.Changed[name])
	}
	for _, dropped := range result.Dropped {
		fmt.Fprintf(streams.Stderr, "WARNING: %s is no longer provided by the repository and was dropped\n", dropped)
	}
	fmt.Fprintf(streams.Stdout, "Generation %d is now current\n", result.Generation)
}
