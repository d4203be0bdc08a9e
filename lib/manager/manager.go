// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/boldos/bold/lib/bincache"
	"github.com/boldos/bold/lib/build"
	"github.com/boldos/bold/lib/evaluator"
	"github.com/boldos/bold/lib/index"
	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/resolve"
	"github.com/boldos/bold/lib/snapshot"
)

// ErrNotInitialized is returned by operations that need a current
// generation when none has been committed.
var ErrNotInitialized = errors.New("no generation has been committed yet; run `bold update` before installing packages")

// Evaluator produces the repository document. *evaluator.Evaluator
// implements it.
type Evaluator interface {
	Evaluate(ctx context.Context) (*evaluator.Result, error)
}

// Materializer makes packages present in the installed-packages area.
// *bincache.Resolver implements it.
type Materializer interface {
	MaterializeAll(ctx context.Context, packages bincache.Packages, levels [][]pkgref.Ref) ([]bincache.Result, error)
	InstalledPath(ref pkgref.Ref) string
}

// Config holds the collaborators of a Manager.
type Config struct {
	Snapshots    *snapshot.Store
	Materializer Materializer

	// Evaluator runs the package repository for update. Nil makes
	// update require a document.
	Evaluator Evaluator

	// Orchestrator stages and prepares hack workspaces. Nil disables
	// hack.
	Orchestrator *build.Orchestrator

	// SystemAlias names the system whose packages update tracks.
	// Empty tracks no system.
	SystemAlias string

	Logger *slog.Logger
}

// Manager runs package operations. Operations on one root are
// serialized by the snapshot store's lock.
type Manager struct {
	snapshots    *snapshot.Store
	materializer Materializer
	evaluator    Evaluator
	orchestrator *build.Orchestrator
	systemAlias  string
	logger       *slog.Logger
}

// New validates the configuration.
func New(cfg Config) (*Manager, error) {
	if cfg.Snapshots == nil {
		return nil, errors.New("manager: Snapshots is required")
	}
	if cfg.Materializer == nil {
		return nil, errors.New("manager: Materializer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		snapshots:    cfg.Snapshots,
		materializer: cfg.Materializer,
		evaluator:    cfg.Evaluator,
		orchestrator: cfg.Orchestrator,
		systemAlias:  cfg.SystemAlias,
		logger:       logger,
	}, nil
}

// currentState loads the current generation and opens its index
// read-only. The caller closes the index. Operations that commit call
// it after Prepare, so the state cannot change underneath them.
func (m *Manager) currentState() (int, *snapshot.Metadata, *index.Index, error) {
	id, ok, err := m.snapshots.Current()
	if err != nil {
		return 0, nil, nil, err
	}
	if !ok {
		return 0, nil, nil, ErrNotInitialized
	}
	metadata, err := m.snapshots.Metadata(id)
	if err != nil {
		return 0, nil, nil, err
	}
	idx, err := index.Open(index.Config{
		Path:     m.snapshots.IndexPath(id),
		ReadOnly: true,
		Logger:   m.logger,
	})
	if err != nil {
		return 0, nil, nil, fmt.Errorf("generation %d: %w", id, err)
	}
	return id, metadata, idx, nil
}

// addDependencies expands the closure of roots and records every
// dependency not yet in packages as non-global. The expanded graph is
// returned for materialization.
func addDependencies(ctx context.Context, idx *index.Index, packages map[pkgref.Ref]snapshot.PackageState, roots []pkgref.Ref) (*resolve.Graph, error) {
	graph, err := resolve.Expand(ctx, idx, roots)
	if err != nil {
		return nil, err
	}
	for _, dep := range graph.Dependencies() {
		if _, ok := packages[dep]; !ok {
			packages[dep] = snapshot.PackageState{}
		}
	}
	return graph, nil
}

// materialize installs every node of graph, dependencies first.
func (m *Manager) materialize(ctx context.Context, idx *index.Index, graph *resolve.Graph) error {
	results, err := m.materializer.MaterializeAll(ctx, idx, graph.Levels())
	if err != nil {
		return err
	}
	fresh := 0
	for _, result := range results {
		if result.Source != bincache.SourceInstalled {
			fresh++
		}
	}
	m.logger.Debug("closure materialized", "packages", len(results), "new", fresh)
	return nil
}

func describe(verb string, selectors []string) string {
	return verb + " " + strings.Join(selectors, ", ")
}
