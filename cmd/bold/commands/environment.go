// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"net/http"

	"github.com/boldos/bold/cmd/bold/cli"
	"github.com/boldos/bold/lib/bincache"
	"github.com/boldos/bold/lib/build"
	"github.com/boldos/bold/lib/config"
	"github.com/boldos/bold/lib/evaluator"
	"github.com/boldos/bold/lib/fetch"
	"github.com/boldos/bold/lib/manager"
	"github.com/boldos/bold/lib/snapshot"
)

// globalParams are embedded in every command's parameters.
type globalParams struct {
	Root    string `flag:"root" desc:"bold root directory (default $BOLD_ROOT or /bold)"`
	Config  string `flag:"config" desc:"configuration file (default $BOLD_CONFIG or <root>/config.toml)"`
	Verbose bool   `flag:"verbose,v" desc:"log debug messages"`
}

// openOptions selects the optional parts of the stack.
type openOptions struct {
	// evaluator is set by commands that run the package repository.
	evaluator bool
}

// open loads the configuration and wires the library stack for its
// root into a Manager.
func (g globalParams) open(streams Streams, options openOptions) (*manager.Manager, error) {
	logger := cli.NewLogger(streams.Stderr, g.Verbose)

	cfg, err := config.Load(g.Root, g.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", "path", cfg.Path, "root", cfg.Root, "repo", cfg.Repo)

	store, err := snapshot.Open(snapshot.Config{
		Dir:    cfg.SnapshotDir(),
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.Timeout()}
	orchestrator := build.New(build.Config{
		Fetcher: fetch.New(fetch.Config{
			SourceTree:     cfg.SourceTree,
			RepositoryTree: cfg.Repo,
			Client:         client,
			Logger:         logger,
		}),
		Output: streams.Stderr,
		Logger: logger,
	})
	resolver, err := bincache.New(bincache.Config{
		InstalledDir: cfg.InstalledDir(),
		CacheDir:     cfg.BinaryCacheDir(),
		BuildDir:     cfg.BuildDir(),
		Endpoints:    cfg.BinaryCaches,
		Client:       client,
		Producer:     orchestrator,
		Jobs:         cfg.Jobs,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	managerConfig := manager.Config{
		Snapshots:    store,
		Materializer: resolver,
		Orchestrator: orchestrator,
		SystemAlias:  cfg.SystemAlias,
		Logger:       logger,
	}
	if options.evaluator {
		evaluate, err := evaluator.New(evaluator.Config{
			Binary:     cfg.QuickJSBinary(),
			Repository: cfg.Repo,
			Logger:     logger,
		})
		if err != nil {
			return nil, cli.NotFound("%w", err).WithHint(
				"Set quickjsPath in " + cfg.Path + " or pass --from-file.")
		}
		managerConfig.Evaluator = evaluate
	}
	m, err := manager.New(managerConfig)
	if err != nil {
		return nil, fmt.Errorf("assembling package manager: %w", err)
	}

	return m, nil
}
