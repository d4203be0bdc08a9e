// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/boldos/bold/lib/evaluator"
	"github.com/boldos/bold/lib/index"
	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/recipe"
	"github.com/boldos/bold/lib/snapshot"
)

// UpdateDescription is the description of generations committed by
// Update.
const UpdateDescription = "Updated from local package repository"

// UpdateOptions controls one Update call.
type UpdateOptions struct {
	// DocumentPath reads the repository document from a file instead
	// of running the evaluator. Comments and trailing commas are
	// accepted.
	DocumentPath string

	// Check only reports whether an update is available.
	Check bool
}

// UpdateResult describes one update.
type UpdateResult struct {
	// RepoHash identifies the evaluated repository.
	RepoHash string

	// UpToDate is set when the current generation was built from the
	// same repository state. Nothing is committed.
	UpToDate bool

	// Generation is the committed generation, zero for checks and
	// when up to date.
	Generation int

	// SystemAdded and SystemRemoved are the changes to the tracked
	// system's package list.
	SystemAdded   []pkgref.Ref
	SystemRemoved []pkgref.Ref

	// Dropped lists requested packages the new repository no longer
	// provides: symbolic names without an alias and exact identities
	// that are not indexed.
	Dropped []string

	// Changed lists packages whose resolved identity differs from the
	// previous generation, keyed by symbolic name.
	Changed map[string]pkgref.Ref
}

// Update evaluates the package repository and, if it changed since the
// current generation, commits a generation built from it: a fresh
// index, the tracked system's packages, every previously requested
// package resolved against the new index, and the dependencies of all
// of them. Update also creates the very first generation.
func (m *Manager) Update(ctx context.Context, options UpdateOptions) (UpdateResult, error) {
	evaluated, err := m.evaluate(ctx, options.DocumentPath)
	if err != nil {
		return UpdateResult{}, err
	}
	result := UpdateResult{RepoHash: evaluated.RepoHash, Changed: make(map[string]pkgref.Ref)}

	current, err := m.snapshots.CurrentMetadata()
	if err != nil {
		return UpdateResult{}, err
	}
	if current != nil && current.RepoHash == evaluated.RepoHash {
		result.UpToDate = true
		return result, nil
	}
	if options.Check {
		return result, nil
	}

	staging, err := m.snapshots.Prepare(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	defer staging.Discard()

	// Another update may have committed while this one evaluated.
	current, err = m.snapshots.CurrentMetadata()
	if err != nil {
		return UpdateResult{}, err
	}
	if current != nil && current.RepoHash == evaluated.RepoHash {
		result.UpToDate = true
		return result, nil
	}

	idx, err := index.Open(index.Config{Path: staging.IndexPath(), Logger: m.logger})
	if err != nil {
		return UpdateResult{}, err
	}
	defer idx.Close()
	if err := idx.Populate(ctx, evaluated.Document); err != nil {
		return UpdateResult{}, err
	}

	next, err := m.nextFromRepository(ctx, idx, current, evaluated, &result)
	if err != nil {
		return UpdateResult{}, err
	}

	graph, err := addDependencies(ctx, idx, next.Packages, next.GlobalRefs())
	if err != nil {
		return UpdateResult{}, err
	}
	if err := m.materialize(ctx, idx, graph); err != nil {
		return UpdateResult{}, err
	}
	if err := idx.Close(); err != nil {
		return UpdateResult{}, fmt.Errorf("closing package index: %w", err)
	}

	next.Description = UpdateDescription
	id, err := staging.Commit(next, m.materializer.InstalledPath, true)
	if err != nil {
		return UpdateResult{}, err
	}
	result.Generation = id
	return result, nil
}

func (m *Manager) evaluate(ctx context.Context, documentPath string) (*evaluator.Result, error) {
	if documentPath != "" {
		data, err := os.ReadFile(documentPath)
		if err != nil {
			return nil, fmt.Errorf("reading repository document: %w", err)
		}
		result, err := evaluator.Parse(jsonc.ToJSON(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", documentPath, err)
		}
		return result, nil
	}
	if m.evaluator == nil {
		return nil, errors.New("no repository evaluator configured")
	}
	return m.evaluator.Evaluate(ctx)
}

// nextFromRepository computes the global part of the next generation:
// the tracked system's packages plus every package the user requested
// before, re-resolved against the new index.
func (m *Manager) nextFromRepository(ctx context.Context, idx *index.Index, current *snapshot.Metadata, evaluated *evaluator.Result, result *UpdateResult) (*snapshot.Metadata, error) {
	previous := current.Clone()
	next := previous.Clone()
	next.RepoHash = evaluated.RepoHash
	next.Systems = evaluated.Document.Systems
	next.Packages = make(map[pkgref.Ref]snapshot.PackageState)
	next.NamedPackages = make(map[string]snapshot.PackageState)

	var system []pkgref.Ref
	if m.systemAlias != "" {
		declared, found, err := evaluated.Document.SystemPackages(m.systemAlias)
		if err != nil {
			return nil, err
		}
		if !found {
			m.logger.Warn("tracked system is not declared by the repository", "system", m.systemAlias)
		}
		before, _, err := (&recipe.Document{Systems: previous.Systems}).SystemPackages(m.systemAlias)
		if err != nil {
			m.logger.Warn("ignoring unreadable system of the previous generation", "system", m.systemAlias, "error", err)
		}
		result.SystemAdded, result.SystemRemoved = diffRefs(before, declared)
		system = declared
	}

	names := slices.Sorted(maps.Keys(previous.NamedPackages))
	previousByName := make(map[string]pkgref.Ref)
	var exact []pkgref.Ref
	for ref, state := range previous.Packages {
		if state.Exact {
			exact = append(exact, ref)
		}
		if state.Global {
			previousByName[ref.Name()] = ref
		}
	}
	slices.SortFunc(exact, pkgref.Compare)

	err := idx.Read(ctx, func(reader *index.Reader) error {
		var undefined []string
		for _, ref := range system {
			exists, err := reader.Exists(ref)
			if err != nil {
				return err
			}
			if !exists {
				undefined = append(undefined, ref.String())
				continue
			}
			next.Packages[ref] = snapshot.PackageState{Global: true}
		}
		if len(undefined) > 0 {
			return fmt.Errorf("system %q lists packages the repository does not define: %s",
				m.systemAlias, strings.Join(undefined, ", "))
		}

		for _, name := range names {
			targets, err := reader.AliasTargets(name)
			if err != nil {
				return err
			}
			if len(targets) != 1 {
				result.Dropped = append(result.Dropped, name)
				m.logger.Warn("dropping package the repository no longer names", "name", name, "candidates", len(targets))
				continue
			}
			ref := targets[0]
			state := next.Packages[ref]
			state.Global = true
			next.Packages[ref] = state
			next.NamedPackages[name] = previous.NamedPackages[name]
			if before, ok := previousByName[name]; ok && before != ref {
				result.Changed[name] = ref
			}
		}

		for _, ref := range exact {
			exists, err := reader.Exists(ref)
			if err != nil {
				return err
			}
			if !exists {
				result.Dropped = append(result.Dropped, ref.String())
				m.logger.Warn("dropping package the repository no longer defines", "package", ref.String())
				continue
			}
			next.Packages[ref] = snapshot.PackageState{Global: true, Exact: true}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// diffRefs returns the refs only in after and the refs only in before,
// both sorted.
func diffRefs(before, after []pkgref.Ref) (added, removed []pkgref.Ref) {
	for _, ref := range after {
		if !slices.Contains(before, ref) {
			added = append(added, ref)
		}
	}
	for _, ref := range before {
		if !slices.Contains(after, ref) {
			removed = append(removed, ref)
		}
	}
	slices.SortFunc(added, pkgref.Compare)
	slices.SortFunc(removed, pkgref.Compare)
	return added, removed
}
