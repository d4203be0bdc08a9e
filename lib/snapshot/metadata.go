// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/boldos/bold/lib/pkgref"
)

// MetadataFile is the name of the metadata document inside a
// generation directory.
const MetadataFile = "metadata.json"

// PackageState records how a package belongs to a generation.
type PackageState struct {
	// Global packages are merged into the generation root. Others are
	// present only as dependencies.
	Global bool `json:"global"`

	// Exact is set when the user requested this identity by its full
	// name@hash rather than through a symbolic name.
	Exact bool `json:"exact,omitempty"`
}

// Metadata is the content of metadata.json. Fields are declared in
// key order so the encoded document has sorted keys.
type Metadata struct {
	Alias         *string                     `json:"alias"`
	Created       time.Time                   `json:"created"`
	Description   string                      `json:"description"`
	NamedPackages map[string]PackageState     `json:"named_packages"`
	Packages      map[pkgref.Ref]PackageState `json:"packages"`
	RepoHash      string                      `json:"repoHash"`
	Systems       map[string]json.RawMessage  `json:"systems"`
}

// Clone returns a deep copy with non-nil maps, suitable as the
// starting point of the next generation.
func (m *Metadata) Clone() *Metadata {
	clone := &Metadata{
		NamedPackages: make(map[string]PackageState),
		Packages:      make(map[pkgref.Ref]PackageState),
		Systems:       make(map[string]json.RawMessage),
	}
	if m == nil {
		return clone
	}
	if m.Alias != nil {
		alias := *m.Alias
		clone.Alias = &alias
	}
	clone.Created = m.Created
	clone.Description = m.Description
	clone.RepoHash = m.RepoHash
	maps.Copy(clone.NamedPackages, m.NamedPackages)
	maps.Copy(clone.Packages, m.Packages)
	maps.Copy(clone.Systems, m.Systems)
	return clone
}

// GlobalRefs returns the global packages in sorted order.
func (m *Metadata) GlobalRefs() []pkgref.Ref {
	var refs []pkgref.Ref
	for ref, state := range m.Packages {
		if state.Global {
			refs = append(refs, ref)
		}
	}
	slices.SortFunc(refs, pkgref.Compare)
	return refs
}

// Refs returns every package of the generation in sorted order.
func (m *Metadata) Refs() []pkgref.Ref {
	refs := slices.Collect(maps.Keys(m.Packages))
	slices.SortFunc(refs, pkgref.Compare)
	return refs
}

func readMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &metadata, nil
}

func writeMetadata(path string, metadata *Metadata) error {
	normalized := metadata.Clone()
	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
