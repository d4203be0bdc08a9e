// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/boldos/bold/lib/pkgref"
)

// Document is a parsed evaluator output: every package the repository
// defines, the symbolic aliases, and the system descriptions.
type Document struct {
	// Packages is keyed by exact identity.
	Packages map[pkgref.Ref]Package

	// Named maps a symbolic name to the hash it currently resolves to.
	Named map[string]string

	// Systems maps a system alias to its opaque description. A
	// description may list "packages" as exact identities.
	Systems map[string]json.RawMessage
}

// rawDocument mirrors the evaluator's JSON output.
type rawDocument struct {
	Recipes      map[string]map[string]json.RawMessage `json:"recipes"`
	NamedRecipes map[string]string                     `json:"named_recipes"`
	Systems      map[string]json.RawMessage            `json:"systems"`
}

// ParseDocument decodes and validates an evaluator output document.
// All problems are collected and reported together.
func ParseDocument(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding repository document: %w", err)
	}
	if raw.Recipes == nil {
		return nil, fmt.Errorf("repository document: missing recipes")
	}

	document := &Document{
		Packages: make(map[pkgref.Ref]Package, len(raw.Recipes)),
		Named:    make(map[string]string, len(raw.NamedRecipes)),
		Systems:  raw.Systems,
	}
	if document.Systems == nil {
		document.Systems = map[string]json.RawMessage{}
	}

	var problems []string
	for _, key := range sortedKeys(raw.Recipes) {
		pkg, err := parseEntry(key, raw.Recipes[key])
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		document.Packages[pkg.Ref] = pkg
	}

	for _, name := range sortedKeys(raw.NamedRecipes) {
		hash := raw.NamedRecipes[name]
		ref, err := pkgref.New(name, hash)
		if err != nil {
			problems = append(problems, fmt.Sprintf("named recipe %q: %v", name, err))
			continue
		}
		if _, ok := document.Packages[ref]; !ok {
			if _, malformed := raw.Recipes[ref.String()]; !malformed {
				problems = append(problems, fmt.Sprintf("named recipe %q points to %s, which is not defined", name, ref))
			}
			continue
		}
		document.Named[name] = hash
	}

	for _, ref := range sortedRefs(document.Packages) {
		for logical, dep := range document.Packages[ref].Depends {
			if _, ok := document.Packages[dep]; !ok {
				problems = append(problems, fmt.Sprintf("%s: dependency %q points to %s, which is not defined", ref, logical, dep))
			}
		}
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return nil, errors.New("invalid repository document:\n- " + strings.Join(problems, "\n- "))
	}
	return document, nil
}

func parseEntry(key string, fields map[string]json.RawMessage) (Package, error) {
	ref, err := pkgref.Parse(key)
	if err != nil {
		return Package{}, fmt.Errorf("recipe key: %w", err)
	}
	recipeJSON, ok := fields["recipe"]
	if !ok {
		return Package{}, fmt.Errorf("%s: missing recipe", ref)
	}
	recipe, err := DecodeRecipe(recipeJSON)
	if err != nil {
		return Package{}, fmt.Errorf("%s: %w", ref, err)
	}

	rest := make(map[string]json.RawMessage, len(fields))
	for name, value := range fields {
		if name != "recipe" {
			rest[name] = value
		}
	}
	encoded, err := json.Marshal(rest)
	if err != nil {
		return Package{}, fmt.Errorf("%s: encoding metadata: %w", ref, err)
	}
	metadata, err := Canonical(encoded)
	if err != nil {
		return Package{}, fmt.Errorf("%s: %w", ref, err)
	}
	shortDesc, depends, err := DecodeMetadata(metadata)
	if err != nil {
		return Package{}, fmt.Errorf("%s: %w", ref, err)
	}

	return Package{
		Ref:       ref,
		ShortDesc: shortDesc,
		Metadata:  metadata,
		Recipe:    recipe,
		Depends:   depends,
	}, nil
}

// Refs returns every package identity in the document, sorted.
func (d *Document) Refs() []pkgref.Ref {
	return sortedRefs(d.Packages)
}

// systemFields is the part of a system description the package manager
// interprets.
type systemFields struct {
	Packages []string `json:"packages"`
}

// SystemPackages returns the packages listed by the named system. The
// boolean is false when the document has no such system.
func (d *Document) SystemPackages(alias string) ([]pkgref.Ref, bool, error) {
	raw, ok := d.Systems[alias]
	if !ok {
		return nil, false, nil
	}
	var fields systemFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, true, fmt.Errorf("system %q: %w", alias, err)
	}
	refs := make([]pkgref.Ref, 0, len(fields.Packages))
	for _, raw := range fields.Packages {
		ref, err := pkgref.Parse(raw)
		if err != nil {
			return nil, true, fmt.Errorf("system %q: %w", alias, err)
		}
		refs = append(refs, ref)
	}
	return refs, true, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func sortedRefs[V any](m map[pkgref.Ref]V) []pkgref.Ref {
	refs := make([]pkgref.Ref, 0, len(m))
	for ref := range m {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, pkgref.Compare)
	return refs
}
