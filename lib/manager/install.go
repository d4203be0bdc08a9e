// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"slices"

	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/resolve"
	"github.com/boldos/bold/lib/snapshot"
)

// InstallResult describes one install.
type InstallResult struct {
	// Generation is the committed generation, or zero when nothing
	// changed.
	Generation int

	// Requested are the resolved identities, in selector order.
	Requested []pkgref.Ref

	// Added are packages that were not part of the previous
	// generation at all, dependencies included, sorted.
	Added []pkgref.Ref
}

// Changed reports whether a generation was committed.
func (r InstallResult) Changed() bool { return r.Generation != 0 }

// Install adds the selected packages to the installed set as global
// packages, together with their dependencies, and commits the result.
// Selectors resolve against the current generation's index. When every
// selected package is already installed globally and recorded the way
// it was requested, nothing is committed.
func (m *Manager) Install(ctx context.Context, selectors []string) (InstallResult, error) {
	staging, err := m.snapshots.Prepare(ctx)
	if err != nil {
		return InstallResult{}, err
	}
	defer staging.Discard()

	currentID, current, idx, err := m.currentState()
	if err != nil {
		return InstallResult{}, err
	}
	defer idx.Close()

	resolved, err := resolve.Selectors(ctx, idx, selectors)
	if err != nil {
		return InstallResult{}, err
	}

	next := current.Clone()
	result := InstallResult{}
	changed := false
	var roots []pkgref.Ref
	for _, entry := range resolved {
		ref := entry.Ref
		result.Requested = append(result.Requested, ref)
		roots = append(roots, ref)

		previous, installed := next.Packages[ref]
		state := snapshot.PackageState{Global: true, Exact: previous.Exact || entry.Selector.IsExact()}
		if !installed || state != previous {
			next.Packages[ref] = state
			changed = true
		}
		if !installed {
			result.Added = append(result.Added, ref)
		}
		if !entry.Selector.IsExact() {
			if named, ok := next.NamedPackages[entry.Selector.Symbolic]; !ok || !named.Global {
				next.NamedPackages[entry.Selector.Symbolic] = snapshot.PackageState{Global: true}
				changed = true
			}
		}
	}
	if !changed {
		m.logger.Info("all requested packages already installed", "generation", currentID)
		return result, nil
	}

	graph, err := addDependencies(ctx, idx, next.Packages, roots)
	if err != nil {
		return InstallResult{}, err
	}
	for _, dep := range graph.Dependencies() {
		if _, ok := current.Packages[dep]; !ok && !slices.Contains(result.Added, dep) {
			result.Added = append(result.Added, dep)
		}
	}
	slices.SortFunc(result.Added, pkgref.Compare)

	if err := m.materialize(ctx, idx, graph); err != nil {
		return InstallResult{}, err
	}

	if err := staging.LinkIndex(idx.Path()); err != nil {
		return InstallResult{}, err
	}
	next.Description = describe("Installed", selectors)
	id, err := staging.Commit(next, m.materializer.InstalledPath, true)
	if err != nil {
		return InstallResult{}, err
	}
	result.Generation = id
	return result, nil
}
