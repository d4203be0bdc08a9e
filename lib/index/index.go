// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package index is the SQLite-backed package index: every package the
// repository defines, keyed by exact identity, plus the symbolic alias
// table that maps a name to its current hash.
//
// An index file is populated once, from one evaluator output, while a
// generation is staged. After the generation is committed the file is
// hardlinked into it and only ever opened read-only.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/recipe"
	"github.com/boldos/bold/lib/sqlitepool"
)

// FileName is the index file name inside a generation directory.
const FileName = "cache.db3"

const schema = `
CREATE TABLE IF NOT EXISTS packages (
	name      TEXT NOT NULL,
	hash      TEXT NOT NULL,
	shortdesc TEXT NOT NULL,
	metadata  TEXT NOT NULL,
	recipe    TEXT NOT NULL,
	PRIMARY KEY (name, hash)
);

CREATE TABLE IF NOT EXISTS named_packages (
	name TEXT NOT NULL PRIMARY KEY,
	hash TEXT NOT NULL
);
`

// ErrNotFound is returned when an exact identity is not indexed.
var ErrNotFound = errors.New("package not found")

// Config holds the parameters for opening an index.
type Config struct {
	// Path is the index file. The parent directory must exist.
	Path string

	// ReadOnly opens an existing, committed index.
	ReadOnly bool

	Logger *slog.Logger
}

// Index is an open package index. It is safe for concurrent use.
type Index struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens or creates an index file.
func Open(cfg Config) (*Index, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolConfig := sqlitepool.Config{
		Path:     cfg.Path,
		Mode:     sqlitepool.ModeRollback,
		PoolSize: 2,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	}
	if cfg.ReadOnly {
		poolConfig.Mode = sqlitepool.ModeReadOnly
		poolConfig.OnConnect = nil
	}

	pool, err := sqlitepool.Open(poolConfig)
	if err != nil {
		return nil, fmt.Errorf("package index: %w", err)
	}
	return &Index{pool: pool, logger: logger}, nil
}

// Close closes the index. For a writable index the file is complete
// and safe to hardlink once Close returns.
func (x *Index) Close() error {
	return x.pool.Close()
}

// Path returns the index file path.
func (x *Index) Path() string { return x.pool.Path() }

// Populate writes every package and alias of a repository document in
// one transaction.
func (x *Index) Populate(ctx context.Context, document *recipe.Document) (err error) {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("package index: populate: %w", err)
	}
	defer x.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("package index: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	for _, ref := range document.Refs() {
		pkg := document.Packages[ref]
		recipeJSON, err := json.Marshal(pkg.Recipe)
		if err != nil {
			return fmt.Errorf("package index: encoding recipe of %s: %w", ref, err)
		}
		err = sqlitex.Execute(conn,
			"INSERT INTO packages (name, hash, shortdesc, metadata, recipe) VALUES (?, ?, ?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{ref.Name(), ref.Hash(), pkg.ShortDesc, string(pkg.Metadata), string(recipeJSON)},
			})
		if err != nil {
			return fmt.Errorf("package index: inserting %s: %w", ref, err)
		}
	}

	for name, hash := range document.Named {
		err := sqlitex.Execute(conn,
			"INSERT INTO named_packages (name, hash) VALUES (?, ?)",
			&sqlitex.ExecOptions{Args: []any{name, hash}})
		if err != nil {
			return fmt.Errorf("package index: inserting alias %s: %w", name, err)
		}
	}

	x.logger.Debug("package index populated",
		"path", x.Path(),
		"packages", len(document.Packages),
		"aliases", len(document.Named),
	)
	return nil
}

// Read runs fn inside a single read transaction so every lookup it
// makes observes the same index state.
func (x *Index) Read(ctx context.Context, fn func(*Reader) error) (err error) {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("package index: read: %w", err)
	}
	defer x.pool.Put(conn)

	endTransaction := sqlitex.Transaction(conn)
	defer endTransaction(&err)

	return fn(&Reader{conn: conn})
}

// Package returns one indexed package.
func (x *Index) Package(ctx context.Context, ref pkgref.Ref) (pkg recipe.Package, err error) {
	err = x.Read(ctx, func(reader *Reader) error {
		pkg, err = reader.Package(ref)
		return err
	})
	return pkg, err
}

// Entries lists every indexed package. Named is set for packages that
// are the current target of their symbolic alias.
func (x *Index) Entries(ctx context.Context) (entries []Entry, err error) {
	err = x.Read(ctx, func(reader *Reader) error {
		entries, err = reader.Entries()
		return err
	})
	return entries, err
}

// Entry is one row of the package listing.
type Entry struct {
	Ref       pkgref.Ref
	ShortDesc string
	Named     bool
}
