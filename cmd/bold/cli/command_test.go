// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string
	root := &Command{
		Name: "bold",
		Subcommands: []*Command{
			{Name: "install", Run: func(ctx context.Context, args []string) error {
				called = "install"
				return nil
			}},
			{Name: "remove", Run: func(ctx context.Context, args []string) error {
				called = "remove"
				return nil
			}},
		},
	}

	if err := root.Execute(context.Background(), []string{"remove", "curl"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "remove" {
		t.Errorf("dispatched to %q, want %q", called, "remove")
	}
}

func TestCommand_Execute_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	var got any
	root := &Command{
		Name: "bold",
		Subcommands: []*Command{
			{Name: "update", Run: func(ctx context.Context, args []string) error {
				got = ctx.Value(key{})
				return nil
			}},
		},
	}
	if err := root.Execute(ctx, []string{"update"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got != "marker" {
		t.Errorf("context value = %v, want marker", got)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var workspace string
	var received []string
	command := &Command{
		Name: "hack",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("hack", pflag.ContinueOnError)
			flagSet.StringVar(&workspace, "workspace", "", "workspace directory")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			received = args
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--workspace", "/tmp/ws", "curl", "libssl"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if workspace != "/tmp/ws" {
		t.Errorf("workspace = %q, want /tmp/ws", workspace)
	}
	if strings.Join(received, " ") != "curl libssl" {
		t.Errorf("args = %v, want [curl libssl]", received)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.Bool("installed", false, "only installed packages")
			flagSet.Bool("manually", false, "only manually installed packages")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--instaled"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --installed?") {
		t.Errorf("error = %q, want a suggestion for --installed", err)
	}
	if CategoryOf(err) != CategoryValidation {
		t.Errorf("category = %q, want %q", CategoryOf(err), CategoryValidation)
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "bold",
		Subcommands: []*Command{
			{Name: "install", Run: func(ctx context.Context, args []string) error { return nil }},
			{Name: "update", Run: func(ctx context.Context, args []string) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"instal"})
	if err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "install"?`) {
		t.Errorf("error = %q, want a suggestion for install", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:       "bold",
		HelpOutput: &help,
		Subcommands: []*Command{
			{Name: "list", Summary: "List packages", Run: func(ctx context.Context, args []string) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), nil)
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != CategoryValidation {
		t.Fatalf("Execute() error = %v, want a validation error", err)
	}
	if !strings.Contains(help.String(), "List packages") {
		t.Errorf("help output missing subcommand summary:\n%s", help.String())
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:       "bold",
		HelpOutput: &help,
		Subcommands: []*Command{
			{
				Name:        "install",
				Description: "Install packages into a new generation.",
				Usage:       "bold install <package>...",
				Examples: []Example{
					{Description: "Install curl", Command: "bold install curl"},
				},
				Run: func(ctx context.Context, args []string) error {
					t.Error("Run called for --help")
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"install", "--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	output := help.String()
	for _, want := range []string{
		"Install packages into a new generation.",
		"Usage:\n  bold install <package>...",
		"# Install curl",
		"bold install curl",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q:\n%s", want, output)
		}
	}
}

func TestCommand_PrintHelp_FlagsSection(t *testing.T) {
	command := &Command{
		Name: "update",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("update", pflag.ContinueOnError)
			flagSet.Bool("check", false, "only check for updates")
			return flagSet
		},
	}
	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	if !strings.Contains(buffer.String(), "--check") {
		t.Errorf("help output missing --check:\n%s", buffer.String())
	}
	if !strings.Contains(buffer.String(), "Usage:\n  update [flags]") {
		t.Errorf("help output missing synthesized usage:\n%s", buffer.String())
	}
}
