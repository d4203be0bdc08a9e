// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"
	"fmt"
	"slices"

	"github.com/boldos/bold/lib/index"
	"github.com/boldos/bold/lib/pkgref"
)

// Graph is the dependency graph reachable from a set of roots.
type Graph struct {
	depends map[pkgref.Ref][]pkgref.Ref
}

// Expand reads the dependency graph reachable from roots in one read
// transaction. Every root and every dependency must be indexed.
func Expand(ctx context.Context, idx Reading, roots []pkgref.Ref) (*Graph, error) {
	graph := &Graph{
		depends: make(map[pkgref.Ref][]pkgref.Ref),
	}
	err := idx.Read(ctx, func(reader *index.Reader) error {
		pending := slices.Clone(roots)
		for len(pending) > 0 {
			ref := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			if _, seen := graph.depends[ref]; seen {
				continue
			}
			depends, err := reader.Depends(ref)
			if err != nil {
				return fmt.Errorf("expanding dependencies: %w", err)
			}
			graph.depends[ref] = depends
			for _, dep := range depends {
				if _, seen := graph.depends[dep]; !seen {
					pending = append(pending, dep)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return graph, nil
}

// Closure returns the transitive dependencies of roots. A root is
// included only when another node in the graph depends on it.
func Closure(ctx context.Context, idx Reading, roots []pkgref.Ref) ([]pkgref.Ref, error) {
	graph, err := Expand(ctx, idx, roots)
	if err != nil {
		return nil, err
	}
	return graph.Dependencies(), nil
}

// Nodes returns every package in the graph, sorted.
func (g *Graph) Nodes() []pkgref.Ref {
	nodes := make([]pkgref.Ref, 0, len(g.depends))
	for ref := range g.depends {
		nodes = append(nodes, ref)
	}
	slices.SortFunc(nodes, pkgref.Compare)
	return nodes
}

// Dependencies returns every node reachable through at least one
// dependency edge, sorted.
func (g *Graph) Dependencies() []pkgref.Ref {
	reachable := make(map[pkgref.Ref]bool)
	for _, depends := range g.depends {
		for _, dep := range depends {
			reachable[dep] = true
		}
	}
	result := make([]pkgref.Ref, 0, len(reachable))
	for ref := range reachable {
		result = append(result, ref)
	}
	slices.SortFunc(result, pkgref.Compare)
	return result
}

// Levels groups the nodes so that every node appears after all of its
// dependencies. Nodes in the same level do not depend on each other
// and can be materialized concurrently. Nodes on a dependency cycle
// cannot be ordered; they and everything depending on them form the
// final level.
func (g *Graph) Levels() [][]pkgref.Ref {
	remaining := make(map[pkgref.Ref]int, len(g.depends))
	dependents := make(map[pkgref.Ref][]pkgref.Ref)
	for ref, depends := range g.depends {
		remaining[ref] = len(depends)
		for _, dep := range depends {
			dependents[dep] = append(dependents[dep], ref)
		}
	}

	var levels [][]pkgref.Ref
	var ready []pkgref.Ref
	for ref, count := range remaining {
		if count == 0 {
			ready = append(ready, ref)
		}
	}
	placed := 0
	for len(ready) > 0 {
		slices.SortFunc(ready, pkgref.Compare)
		levels = append(levels, ready)
		placed += len(ready)

		var next []pkgref.Ref
		for _, ref := range ready {
			for _, dependent := range dependents[ref] {
				remaining[dependent]--
				if remaining[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		ready = next
	}

	if placed < len(g.depends) {
		var cyclic []pkgref.Ref
		for ref, count := range remaining {
			if count > 0 {
				cyclic = append(cyclic, ref)
			}
		}
		slices.SortFunc(cyclic, pkgref.Compare)
		levels = append(levels, cyclic)
	}
	return levels
}
