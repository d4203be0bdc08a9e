// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Package describes one package of a test repository.
type Package struct {
	// Ref is the identity, "name@hash".
	Ref string

	// File is the path, relative to the install root, that the
	// install phase writes. It contains the package name.
	File string

	// Depends maps local dependency names to identities.
	Depends map[string]string

	// Install replaces the generated install command.
	Install string

	// ShortDesc defaults to "the <name> package".
	ShortDesc string
}

// Repository is a package repository document under construction.
type Repository struct {
	Packages []Package

	// Named maps symbolic names to hashes.
	Named map[string]string

	// Systems maps system aliases to the identities they install.
	Systems map[string][]string
}

// name returns the part of an identity before the '@'.
func name(ref string) string {
	name, _, _ := strings.Cut(ref, "@")
	return name
}

// Document encodes the repository as the evaluator would print it.
// Every recipe also has an unpack phase that writes "unpacked-<name>"
// into the working directory.
func (r Repository) Document(t TB) string {
	t.Helper()
	recipes := map[string]any{}
	for _, pkg := range r.Packages {
		pkgName := name(pkg.Ref)
		install := pkg.Install
		if install == "" {
			install = fmt.Sprintf(`mkdir -p "$DESTDIR/%s" && echo %s > "$DESTDIR/%s"`,
				path.Dir(pkg.File), pkgName, pkg.File)
		}
		shortDesc := pkg.ShortDesc
		if shortDesc == "" {
			shortDesc = "the " + pkgName + " package"
		}
		entry := map[string]any{
			"shortDesc": shortDesc,
			"recipe": map[string]any{
				"externals": map[string]string{},
				"phases": map[string]any{
					"unpack":  map[string]string{"cmd": "echo " + pkgName + " > unpacked-" + pkgName},
					"install": map[string]string{"cmd": install},
				},
			},
		}
		if pkg.Depends != nil {
			entry["depends"] = pkg.Depends
		}
		recipes[pkg.Ref] = entry
	}
	systems := map[string]any{}
	for alias, packages := range r.Systems {
		systems[alias] = map[string]any{"packages": packages}
	}
	named := r.Named
	if named == nil {
		named = map[string]string{}
	}
	data, err := json.MarshalIndent(map[string]any{
		"recipes":       recipes,
		"named_recipes": named,
		"systems":       systems,
	}, "", "  ")
	if err != nil {
		t.Fatalf("encoding repository: %v", err)
	}
	return string(data)
}

// WriteDocument writes the document to dir/name behind a comment
// line, the way hand-maintained documents for update --from-file
// look, and returns the path.
func (r Repository) WriteDocument(t TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := "// test repository\n" + r.Document(t) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing repository document: %v", err)
	}
	return path
}
