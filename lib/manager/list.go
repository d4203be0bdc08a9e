// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"strings"

	"github.com/boldos/bold/lib/pkgref"
)

// ListOptions filters List.
type ListOptions struct {
	// Filter keeps packages whose name contains it.
	Filter string

	// Installed keeps packages of the current generation.
	Installed bool

	// Manually keeps packages the user requested.
	Manually bool
}

// ListEntry is one listed package.
type ListEntry struct {
	Ref       pkgref.Ref `json:"package"`
	ShortDesc string     `json:"short_desc"`

	// Installed is set for packages of the current generation.
	Installed bool `json:"installed"`

	// Manually is set for installed packages the user requested, by
	// exact identity or by a symbolic name that currently resolves to
	// this package.
	Manually bool `json:"manually"`
}

// Tags returns the entry's tags in display order.
func (e ListEntry) Tags() []string {
	var tags []string
	if e.Installed {
		tags = append(tags, "installed")
	}
	if e.Manually {
		tags = append(tags, "manually")
	}
	return tags
}

// List returns the packages of the current generation's index that
// pass the filters, ordered by name then hash.
func (m *Manager) List(ctx context.Context, options ListOptions) ([]ListEntry, error) {
	_, current, idx, err := m.currentState()
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	entries, err := idx.Entries(ctx)
	if err != nil {
		return nil, err
	}

	var listed []ListEntry
	for _, entry := range entries {
		if options.Filter != "" && !strings.Contains(entry.Ref.Name(), options.Filter) {
			continue
		}
		state, installed := current.Packages[entry.Ref]
		_, named := current.NamedPackages[entry.Ref.Name()]
		manually := installed && (state.Exact || (entry.Named && named))
		if options.Installed && !installed {
			continue
		}
		if options.Manually && !manually {
			continue
		}
		listed = append(listed, ListEntry{
			Ref:       entry.Ref,
			ShortDesc: entry.ShortDesc,
			Installed: installed,
			Manually:  manually,
		})
	}
	return listed, nil
}
