// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/boldos/bold/lib/index"
	"github.com/boldos/bold/lib/pkgref"
)

// Reading is the part of the package index the resolvers need.
type Reading interface {
	Read(ctx context.Context, fn func(*index.Reader) error) error
}

// Reason classifies why a selector did not resolve.
type Reason int

const (
	// NotIndexed: an exact identity is absent from the index.
	NotIndexed Reason = iota

	// NoAlias: no symbolic alias has this name.
	NoAlias

	// Ambiguous: more than one alias row matches the name.
	Ambiguous
)

// Unresolved describes one selector that could not be resolved.
type Unresolved struct {
	Selector string
	Reason   Reason

	// Candidates lists exact identities related to the selector: the
	// competing targets for Ambiguous, or identities that share the
	// name for NoAlias.
	Candidates []pkgref.Ref
}

func (u Unresolved) String() string {
	switch u.Reason {
	case NotIndexed:
		return fmt.Sprintf("%s (no such package in the index)", u.Selector)
	case Ambiguous:
		return fmt.Sprintf("%s (ambiguous: %s)", u.Selector, joinRefs(u.Candidates))
	default:
		if len(u.Candidates) > 0 {
			return fmt.Sprintf("%s (no named package; exact versions: %s)", u.Selector, joinRefs(u.Candidates))
		}
		return fmt.Sprintf("%s (not found)", u.Selector)
	}
}

// ResolutionError lists every selector that failed to resolve.
type ResolutionError struct {
	Unresolved []Unresolved
}

func (e *ResolutionError) Error() string {
	var builder strings.Builder
	builder.WriteString("the following packages could not be resolved:")
	for _, unresolved := range e.Unresolved {
		builder.WriteString("\n- ")
		builder.WriteString(unresolved.String())
	}
	return builder.String()
}

// Selectors returns the selector strings that failed, in input order.
func (e *ResolutionError) Selectors() []string {
	selectors := make([]string, len(e.Unresolved))
	for i, unresolved := range e.Unresolved {
		selectors[i] = unresolved.Selector
	}
	return selectors
}

// Resolved pairs a parsed selector with the identity it resolved to.
type Resolved struct {
	Selector pkgref.Selector
	Ref      pkgref.Ref
}

// Selectors parses and resolves raw selector strings. Syntax errors are
// reported as a *pkgref.SelectorSyntaxError before the index is read.
// Lookup failures are reported together as a *ResolutionError.
func Selectors(ctx context.Context, idx Reading, raws []string) ([]Resolved, error) {
	selectors, err := pkgref.ParseSelectors(raws)
	if err != nil {
		return nil, err
	}

	resolved := make([]Resolved, 0, len(selectors))
	var failures []Unresolved
	err = idx.Read(ctx, func(reader *index.Reader) error {
		for _, selector := range selectors {
			ref, failure, err := resolveOne(reader, selector)
			if err != nil {
				return err
			}
			if failure != nil {
				failures = append(failures, *failure)
				continue
			}
			resolved = append(resolved, Resolved{Selector: selector, Ref: ref})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return nil, &ResolutionError{Unresolved: failures}
	}
	return resolved, nil
}

func resolveOne(reader *index.Reader, selector pkgref.Selector) (pkgref.Ref, *Unresolved, error) {
	if selector.IsExact() {
		exists, err := reader.Exists(selector.Exact)
		if err != nil {
			return pkgref.Ref{}, nil, err
		}
		if !exists {
			return pkgref.Ref{}, &Unresolved{Selector: selector.Raw, Reason: NotIndexed}, nil
		}
		return selector.Exact, nil, nil
	}

	targets, err := reader.AliasTargets(selector.Symbolic)
	if err != nil {
		return pkgref.Ref{}, nil, err
	}
	switch len(targets) {
	case 1:
		return targets[0], nil, nil
	case 0:
		hints, err := reader.HashesOf(selector.Symbolic)
		if err != nil {
			return pkgref.Ref{}, nil, err
		}
		return pkgref.Ref{}, &Unresolved{Selector: selector.Raw, Reason: NoAlias, Candidates: hints}, nil
	default:
		return pkgref.Ref{}, &Unresolved{Selector: selector.Raw, Reason: Ambiguous, Candidates: targets}, nil
	}
}

func joinRefs(refs []pkgref.Ref) string {
	parts := make([]string, len(refs))
	for i, ref := range refs {
		parts[i] = ref.String()
	}
	return strings.Join(parts, ", ")
}
