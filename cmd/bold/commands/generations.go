// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/boldos/bold/cmd/bold/cli"
)

type generationsParams struct {
	globalParams
	cli.JSONOutput
}

// generationSummary is the JSON form of one generation.
type generationSummary struct {
	ID          int       `json:"id"`
	Parent      int       `json:"parent,omitempty"`
	Current     bool      `json:"current"`
	Created     time.Time `json:"created"`
	Description string    `json:"description"`
	Packages    int       `json:"packages"`
}

func generationsCommand(streams Streams) *cli.Command {
	var params generationsParams
	return &cli.Command{
		Name:    "generations",
		Summary: "List committed generations",
		Usage:   "bold generations [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("generations", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("generations takes no arguments")
			}
			packageManager, err := params.open(streams, openOptions{})
			if err != nil {
				return categorize(err)
			}
			generations, err := packageManager.Generations()
			if err != nil {
				return categorize(err)
			}

			summaries := make([]generationSummary, 0, len(generations))
			for _, generation := range generations {
				summary := generationSummary{
					ID:      generation.ID,
					Parent:  generation.Parent,
					Current: generation.Current,
				}
				if generation.Metadata != nil {
					summary.Created = generation.Metadata.Created
					summary.Description = generation.Metadata.Description
					summary.Packages = len(generation.Metadata.Packages)
				}
				summaries = append(summaries, summary)
			}
			if done, err := params.EmitJSON(streams.Stdout, summaries); done {
				return err
			}

			writer := tabwriter.NewWriter(streams.Stdout, 2, 0, 2, ' ', 0)
			for _, summary := range summaries {
				marker := " "
				if summary.Current {
					marker = "*"
				}
				fmt.Fprintf(writer, "%s %d\t%s\t%d packages\t%s\n",
					marker, summary.ID, humanize.Time(summary.Created), summary.Packages, summary.Description)
			}
			return writer.Flush()
		},
	}
}

type switchParams struct {
	globalParams
}

func switchCommand(streams Streams) *cli.Command {
	var params switchParams
	return &cli.Command{
		Name:    "switch",
		Summary: "Make an existing generation current",
		Usage:   "bold switch [flags] <generation>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("switch", &params)
		},
		Examples: []cli.Example{
			{Description: "Roll back to generation 3", Command: "bold switch 3"},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("switch takes exactly one generation number")
			}
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return cli.Validation("invalid generation %q", args[0])
			}
			packageManager, err := params.open(streams, openOptions{})
			if err != nil {
				return categorize(err)
			}
			if err := packageManager.Switch(ctx, id); err != nil {
				return categorize(err)
			}
			fmt.Fprintf(streams.Stdout, "Generation %d is now current\n", id)
			return nil
		},
	}
}
