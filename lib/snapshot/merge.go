// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// MarkerDir is the reserved directory created at the top of every
// merged root. Packages may not provide an entry with this name.
const MarkerDir = "bold"

// Collision is one path claimed by more than one source tree.
type Collision struct {
	// Path is relative to the merged root.
	Path string

	// Owners names the trees that provide Path, in merge order.
	Owners []string
}

// CollisionError reports every colliding path found while planning a
// merge. No link has been created when it is returned.
type CollisionError struct {
	Collisions []Collision
}

func (e *CollisionError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%d conflicting paths in the merged root:", len(e.Collisions))
	for _, collision := range e.Collisions {
		fmt.Fprintf(&builder, "\n  %s (%s)", collision.Path, strings.Join(collision.Owners, ", "))
	}
	return builder.String()
}

// MergeSource is one tree taking part in a merge.
type MergeSource struct {
	// Owner labels the tree in collision reports.
	Owner string

	// Dir is the root of the tree.
	Dir string
}

type stepKind int

const (
	stepMkdir stepKind = iota
	stepLink
)

type mergeStep struct {
	kind     stepKind
	relative string
	source   string
}

// MergePlan is a conflict-free list of directory creations and
// hardlinks. Directories always precede their contents.
type MergePlan struct {
	steps []mergeStep
}

// Links returns the number of files the plan hardlinks.
func (p *MergePlan) Links() int {
	count := 0
	for _, step := range p.steps {
		if step.kind == stepLink {
			count++
		}
	}
	return count
}

type mergeEntry struct {
	owner string
	path  string
	isDir bool
}

// PlanMerge walks every source tree and returns the plan that unions
// them. Directories present in several trees are merged; any other
// path present in more than one tree is a collision, as is a top-level
// entry named MarkerDir. Symlinks are linked as they are, never
// followed.
func PlanMerge(sources []MergeSource) (*MergePlan, error) {
	roots := make([]mergeEntry, 0, len(sources))
	for _, source := range sources {
		info, err := os.Lstat(source.Dir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", source.Owner, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: %s is not a directory", source.Owner, source.Dir)
		}
		roots = append(roots, mergeEntry{owner: source.Owner, path: source.Dir, isDir: true})
	}

	plan := &MergePlan{}
	var collisions []Collision
	if err := planDirectory(plan, &collisions, roots, ""); err != nil {
		return nil, err
	}
	if len(collisions) > 0 {
		return nil, &CollisionError{Collisions: collisions}
	}
	return plan, nil
}

func planDirectory(plan *MergePlan, collisions *[]Collision, directories []mergeEntry, relative string) error {
	children := make(map[string][]mergeEntry)
	for _, directory := range directories {
		entries, err := os.ReadDir(directory.path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", directory.owner, err)
		}
		for _, entry := range entries {
			children[entry.Name()] = append(children[entry.Name()], mergeEntry{
				owner: directory.owner,
				path:  filepath.Join(directory.path, entry.Name()),
				isDir: entry.IsDir(),
			})
		}
	}

	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		entries := children[name]
		childRelative := filepath.Join(relative, name)

		if relative == "" && name == MarkerDir {
			*collisions = append(*collisions, Collision{Path: childRelative, Owners: owners(entries)})
			continue
		}
		if allDirectories(entries) {
			plan.steps = append(plan.steps, mergeStep{kind: stepMkdir, relative: childRelative})
			if err := planDirectory(plan, collisions, entries, childRelative); err != nil {
				return err
			}
			continue
		}
		if len(entries) > 1 {
			*collisions = append(*collisions, Collision{Path: childRelative, Owners: owners(entries)})
			continue
		}
		plan.steps = append(plan.steps, mergeStep{kind: stepLink, relative: childRelative, source: entries[0].path})
	}
	return nil
}

func allDirectories(entries []mergeEntry) bool {
	for _, entry := range entries {
		if !entry.isDir {
			return false
		}
	}
	return true
}

func owners(entries []mergeEntry) []string {
	result := make([]string, len(entries))
	for i, entry := range entries {
		result[i] = entry.owner
	}
	return result
}

// Apply materializes the plan under destination, which must exist and
// be empty.
func (p *MergePlan) Apply(destination string) error {
	for _, step := range p.steps {
		target := filepath.Join(destination, step.relative)
		switch step.kind {
		case stepMkdir:
			if err := os.Mkdir(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", step.relative, err)
			}
		case stepLink:
			if err := os.Link(step.source, target); err != nil {
				return fmt.Errorf("linking %s: %w", step.relative, err)
			}
		}
	}
	return nil
}
