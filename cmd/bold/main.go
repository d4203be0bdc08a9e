// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/boldos/bold/cmd/bold/commands"
	"github.com/boldos/bold/lib/process"
)

func main() {
	process.Exit(run())
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := commands.Root(commands.Streams{Stdout: os.Stdout, Stderr: os.Stderr})
	return root.Execute(ctx, os.Args[1:])
}
