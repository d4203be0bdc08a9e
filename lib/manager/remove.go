// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/boldos/bold/lib/index"
	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/resolve"
	"github.com/boldos/bold/lib/snapshot"
)

// NotInstalledError lists selectors naming packages that are not part
// of the current generation.
type NotInstalledError struct {
	Selectors []string
}

func (e *NotInstalledError) Error() string {
	return "the following packages are not installed:\n- " + strings.Join(e.Selectors, "\n- ")
}

// RemoveResult describes one removal.
type RemoveResult struct {
	Generation int

	// Removed are the identities dropped from the installed set,
	// including dependencies nothing else needs any more, sorted.
	Removed []pkgref.Ref

	// Unrequested are removed packages that had been installed only as
	// a dependency or by the tracked system, never by the user.
	Unrequested []pkgref.Ref

	// Retained are selected packages still needed by another global
	// package. They stay installed as dependencies.
	Retained []pkgref.Ref
}

// Remove drops the selected packages from the installed set, together
// with dependencies no remaining global package needs, and commits the
// result. Every selector must name an installed package; otherwise a
// *NotInstalledError lists all that do not.
func (m *Manager) Remove(ctx context.Context, selectors []string) (RemoveResult, error) {
	staging, err := m.snapshots.Prepare(ctx)
	if err != nil {
		return RemoveResult{}, err
	}
	defer staging.Discard()

	_, current, idx, err := m.currentState()
	if err != nil {
		return RemoveResult{}, err
	}
	defer idx.Close()

	resolved, err := resolve.Selectors(ctx, idx, selectors)
	if err != nil {
		return RemoveResult{}, err
	}
	var missing []string
	for _, entry := range resolved {
		if _, ok := current.Packages[entry.Ref]; !ok {
			missing = append(missing, entry.Selector.Raw)
		}
	}
	if len(missing) > 0 {
		return RemoveResult{}, &NotInstalledError{Selectors: missing}
	}

	next := current.Clone()
	result := RemoveResult{}
	var requested []pkgref.Ref
	err = idx.Read(ctx, func(reader *index.Reader) error {
		for _, entry := range resolved {
			ref := entry.Ref
			state := next.Packages[ref]
			manual := state.Exact

			name := entry.Selector.Symbolic
			if entry.Selector.IsExact() {
				targets, err := reader.AliasTargets(ref.Name())
				if err != nil {
					return err
				}
				if slices.Contains(targets, ref) {
					name = ref.Name()
				}
			}
			if _, ok := next.NamedPackages[name]; ok && name != "" {
				delete(next.NamedPackages, name)
				manual = true
			}
			if !manual {
				result.Unrequested = append(result.Unrequested, ref)
				m.logger.Warn("removing package which wasn't installed manually", "package", ref.String())
			}
			delete(next.Packages, ref)
			requested = append(requested, ref)
		}
		return nil
	})
	if err != nil {
		return RemoveResult{}, err
	}

	if err := m.prune(ctx, idx, next); err != nil {
		return RemoveResult{}, err
	}
	for _, ref := range current.Refs() {
		if _, ok := next.Packages[ref]; !ok {
			result.Removed = append(result.Removed, ref)
		}
	}
	for _, ref := range requested {
		if _, ok := next.Packages[ref]; ok {
			result.Retained = append(result.Retained, ref)
		}
	}

	if err := staging.LinkIndex(idx.Path()); err != nil {
		return RemoveResult{}, err
	}
	next.Description = describe("Removed", selectors)
	id, err := staging.Commit(next, m.materializer.InstalledPath, true)
	if err != nil {
		return RemoveResult{}, err
	}
	result.Generation = id
	return result, nil
}

// prune recomputes the non-global part of metadata from the closure
// of its global packages.
func (m *Manager) prune(ctx context.Context, idx *index.Index, metadata *snapshot.Metadata) error {
	globals := metadata.GlobalRefs()
	for ref, state := range metadata.Packages {
		if !state.Global {
			delete(metadata.Packages, ref)
		}
	}
	if len(globals) == 0 {
		return nil
	}
	if _, err := addDependencies(ctx, idx, metadata.Packages, globals); err != nil {
		return fmt.Errorf("recomputing dependencies: %w", err)
	}
	return nil
}
