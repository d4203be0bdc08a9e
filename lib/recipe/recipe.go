// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package recipe

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/boldos/bold/lib/pkgref"
)

// External URI schemes understood by the fetcher.
const (
	SchemeSource     = "src"
	SchemeRepository = "repo"
	SchemeHTTPS      = "https"
)

// PhaseSpec is one entry of a recipe's phases object.
type PhaseSpec struct {
	// Cmd is a shell command string, run with "sh -c" in the workspace.
	Cmd string `json:"cmd"`
}

// Recipe is the build description of one package.
type Recipe struct {
	// Externals maps a local name to the URI of an input resource.
	// The staged file is exposed to phases as EXT_<local name>.
	Externals map[string]string `json:"externals"`

	// Phases holds the commands for the phases this recipe defines.
	Phases map[Phase]PhaseSpec `json:"phases"`
}

// OrderedPhases returns the phases present in the recipe, in the fixed
// execution order.
func (r Recipe) OrderedPhases() []Phase {
	var present []Phase
	for _, phase := range Phases {
		if _, ok := r.Phases[phase]; ok {
			present = append(present, phase)
		}
	}
	return present
}

// ExternalNames returns the external local names in sorted order.
func (r Recipe) ExternalNames() []string {
	names := make([]string, 0, len(r.Externals))
	for name := range r.Externals {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks that every external has a local name usable as an
// environment variable suffix and a parseable URI. Unknown URI schemes
// are not rejected here: the fetcher reports and skips them so the
// failure surfaces in the phase that needed the file.
func (r Recipe) Validate() error {
	if r.Externals == nil {
		return fmt.Errorf("recipe: missing externals")
	}
	if r.Phases == nil {
		return fmt.Errorf("recipe: missing phases")
	}
	for _, name := range r.ExternalNames() {
		if !validEnvSuffix(name) {
			return fmt.Errorf("recipe: external %q: local name must match [A-Za-z0-9_]+", name)
		}
		if _, err := url.Parse(r.Externals[name]); err != nil {
			return fmt.Errorf("recipe: external %q: %w", name, err)
		}
	}
	return nil
}

func validEnvSuffix(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// Package is one indexed package: identity, description, recipe, and
// the exact dependencies it declares.
type Package struct {
	Ref       pkgref.Ref
	ShortDesc string

	// Metadata is the canonical JSON of every field of the evaluator
	// entry except "recipe". It includes shortDesc and depends.
	Metadata json.RawMessage

	Recipe Recipe

	// Depends maps a logical dependency name to an exact identity.
	Depends map[string]pkgref.Ref
}

// DependencyRefs returns the distinct exact dependencies, sorted.
func (p Package) DependencyRefs() []pkgref.Ref {
	refs := make([]pkgref.Ref, 0, len(p.Depends))
	for _, ref := range p.Depends {
		if !slices.Contains(refs, ref) {
			refs = append(refs, ref)
		}
	}
	slices.SortFunc(refs, pkgref.Compare)
	return refs
}

// metadataFields is the validated subset of an entry's metadata.
type metadataFields struct {
	ShortDesc *string           `json:"shortDesc"`
	Depends   map[string]string `json:"depends"`
}

// DecodeMetadata extracts the short description and dependencies from
// a canonical metadata document.
func DecodeMetadata(metadata []byte) (string, map[string]pkgref.Ref, error) {
	var fields metadataFields
	if err := json.Unmarshal(metadata, &fields); err != nil {
		return "", nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if fields.ShortDesc == nil {
		return "", nil, fmt.Errorf("metadata: missing shortDesc")
	}
	depends := make(map[string]pkgref.Ref, len(fields.Depends))
	for logical, raw := range fields.Depends {
		ref, err := pkgref.Parse(raw)
		if err != nil {
			return "", nil, fmt.Errorf("metadata: depends %q: %w", logical, err)
		}
		depends[logical] = ref
	}
	return *fields.ShortDesc, depends, nil
}

// DecodeRecipe parses and validates a recipe document.
func DecodeRecipe(data []byte) (Recipe, error) {
	var recipe Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return Recipe{}, fmt.Errorf("decoding recipe: %w", err)
	}
	if err := recipe.Validate(); err != nil {
		return Recipe{}, err
	}
	return recipe, nil
}

// Canonical re-encodes a JSON document with sorted object keys and no
// insignificant whitespace. encoding/json sorts map keys on output,
// which is what makes a round trip through any canonical.
func Canonical(data []byte) (json.RawMessage, error) {
	var value any
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("canonicalizing JSON: %w", err)
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing JSON: %w", err)
	}
	return encoded, nil
}
