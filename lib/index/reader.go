// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/recipe"
)

// Reader performs lookups inside one read transaction. It is only
// valid for the duration of the [Index.Read] callback.
type Reader struct {
	conn *sqlite.Conn
}

// Exists reports whether an exact identity is indexed.
func (r *Reader) Exists(ref pkgref.Ref) (bool, error) {
	var found bool
	err := sqlitex.Execute(r.conn,
		"SELECT 1 FROM packages WHERE name = ? AND hash = ?",
		&sqlitex.ExecOptions{
			Args: []any{ref.Name(), ref.Hash()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("package index: looking up %s: %w", ref, err)
	}
	return found, nil
}

// AliasTargets returns every hash the alias table maps name to. A
// well-formed index has at most one.
func (r *Reader) AliasTargets(name string) ([]pkgref.Ref, error) {
	return r.refs("SELECT name, hash FROM named_packages WHERE name = ? ORDER BY hash", name)
}

// HashesOf returns every indexed identity with the given name.
func (r *Reader) HashesOf(name string) ([]pkgref.Ref, error) {
	return r.refs("SELECT name, hash FROM packages WHERE name = ? ORDER BY hash", name)
}

func (r *Reader) refs(query, name string) ([]pkgref.Ref, error) {
	var refs []pkgref.Ref
	err := sqlitex.Execute(r.conn, query, &sqlitex.ExecOptions{
		Args: []any{name},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			ref, err := pkgref.New(stmt.ColumnText(0), stmt.ColumnText(1))
			if err != nil {
				return err
			}
			refs = append(refs, ref)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("package index: looking up %q: %w", name, err)
	}
	return refs, nil
}

// Depends returns the distinct exact dependencies of ref, sorted.
func (r *Reader) Depends(ref pkgref.Ref) ([]pkgref.Ref, error) {
	metadata, _, err := r.row(ref)
	if err != nil {
		return nil, err
	}
	_, depends, err := recipe.DecodeMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("package index: %s: %w", ref, err)
	}
	return recipe.Package{Depends: depends}.DependencyRefs(), nil
}

// Package returns the full indexed package, or ErrNotFound.
func (r *Reader) Package(ref pkgref.Ref) (recipe.Package, error) {
	metadata, recipeJSON, err := r.row(ref)
	if err != nil {
		return recipe.Package{}, err
	}
	shortDesc, depends, err := recipe.DecodeMetadata(metadata)
	if err != nil {
		return recipe.Package{}, fmt.Errorf("package index: %s: %w", ref, err)
	}
	decoded, err := recipe.DecodeRecipe(recipeJSON)
	if err != nil {
		return recipe.Package{}, fmt.Errorf("package index: %s: %w", ref, err)
	}
	return recipe.Package{
		Ref:       ref,
		ShortDesc: shortDesc,
		Metadata:  metadata,
		Recipe:    decoded,
		Depends:   depends,
	}, nil
}

func (r *Reader) row(ref pkgref.Ref) (metadata, recipeJSON []byte, err error) {
	var found bool
	err = sqlitex.Execute(r.conn,
		"SELECT metadata, recipe FROM packages WHERE name = ? AND hash = ?",
		&sqlitex.ExecOptions{
			Args: []any{ref.Name(), ref.Hash()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				metadata = []byte(stmt.ColumnText(0))
				recipeJSON = []byte(stmt.ColumnText(1))
				return nil
			},
		})
	if err != nil {
		return nil, nil, fmt.Errorf("package index: reading %s: %w", ref, err)
	}
	if !found {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return metadata, recipeJSON, nil
}

// Entries lists every package, ordered by name then hash.
func (r *Reader) Entries() ([]Entry, error) {
	var entries []Entry
	err := sqlitex.Execute(r.conn, `
		SELECT p.name, p.hash, p.shortdesc, n.hash IS NOT NULL
		FROM packages p
		LEFT JOIN named_packages n ON n.name = p.name AND n.hash = p.hash
		ORDER BY p.name, p.hash`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ref, err := pkgref.New(stmt.ColumnText(0), stmt.ColumnText(1))
				if err != nil {
					return err
				}
				entries = append(entries, Entry{
					Ref:       ref,
					ShortDesc: stmt.ColumnText(2),
					Named:     stmt.ColumnInt(3) != 0,
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("package index: listing: %w", err)
	}
	return entries, nil
}
