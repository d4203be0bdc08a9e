// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/boldos/bold/lib/build"
	"github.com/boldos/bold/lib/fetch"
	"github.com/boldos/bold/lib/index"
	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/recipe"
	"github.com/boldos/bold/lib/resolve"
)

// hackPhases are run for the main package when a workspace is created.
var hackPhases = []recipe.Phase{recipe.PhaseUnpack, recipe.PhasePatch}

// HackOptions controls one Hack call.
type HackOptions struct {
	// Workspace is the directory to create. Empty means
	// "<name>-workspace" in the working directory, after the first
	// selected package.
	Workspace string
}

// HackResult describes a prepared workspace.
type HackResult struct {
	Workspace build.Workspace

	// Packages are the packages available in the workspace. The first
	// is the main package.
	Packages []pkgref.Ref

	// Skipped are externals with an unknown scheme. Phases that need
	// them will fail.
	Skipped []*fetch.UnknownSchemeError
}

// Hack creates a development workspace for the selected packages and
// their dependencies: every external is staged, activate.sh is
// written, and the main package is unpacked and patched. The workspace
// is left in place when a later step fails.
func (m *Manager) Hack(ctx context.Context, selectors []string, options HackOptions) (HackResult, error) {
	if m.orchestrator == nil {
		return HackResult{}, errors.New("no build orchestrator configured")
	}
	if len(selectors) == 0 {
		return HackResult{}, errors.New("hack needs at least one package")
	}

	_, _, idx, err := m.currentState()
	if err != nil {
		return HackResult{}, err
	}
	defer idx.Close()

	resolved, err := resolve.Selectors(ctx, idx, selectors)
	if err != nil {
		return HackResult{}, err
	}
	roots := make([]pkgref.Ref, len(resolved))
	for i, entry := range resolved {
		roots[i] = entry.Ref
	}
	graph, err := resolve.Expand(ctx, idx, roots)
	if err != nil {
		return HackResult{}, err
	}

	var ordered []pkgref.Ref
	for _, ref := range append(roots, graph.Nodes()...) {
		if !slices.Contains(ordered, ref) {
			ordered = append(ordered, ref)
		}
	}
	packages := make([]recipe.Package, 0, len(ordered))
	err = idx.Read(ctx, func(reader *index.Reader) error {
		for _, ref := range ordered {
			pkg, err := reader.Package(ref)
			if err != nil {
				return err
			}
			packages = append(packages, pkg)
		}
		return nil
	})
	if err != nil {
		return HackResult{}, err
	}

	dir := options.Workspace
	if dir == "" {
		dir = roots[0].Name() + "-workspace"
	}
	workspace, err := build.Create(dir)
	if err != nil {
		return HackResult{}, err
	}
	result := HackResult{Workspace: workspace, Packages: ordered}

	for _, pkg := range packages {
		staged, err := m.orchestrator.Fetch(ctx, workspace, pkg)
		if err != nil {
			return result, err
		}
		result.Skipped = append(result.Skipped, staged.Skipped...)
	}
	if err := build.WriteEnvironment(workspace, packages); err != nil {
		return result, err
	}

	mainPackage := packages[0]
	destDir := workspace.DestDir(mainPackage.Ref)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return result, fmt.Errorf("creating output directory: %w", err)
	}
	if err := m.orchestrator.RunPhases(ctx, workspace, mainPackage, hackPhases, destDir); err != nil {
		return result, err
	}
	m.logger.Info("workspace ready",
		"workspace", workspace.Dir,
		"package", mainPackage.Ref.String(),
		"packages", len(packages),
	)
	return result, nil
}
