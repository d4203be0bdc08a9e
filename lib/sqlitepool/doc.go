// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases for Bold with a fixed set
// of pragmas.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers [Pool.Take]
// a connection, perform work, and [Pool.Put] it back. Connections are
// not safe for concurrent use.
//
// # Modes
//
// A package index file (cache.db3) is written once while staging and
// then hardlinked into an immutable generation. A WAL database keeps
// committed pages in a sidecar -wal file that a hardlink of the main
// file would not carry, so the pool never uses WAL. It supports two
// modes:
//
//   - [ModeRollback]: journal_mode=DELETE. Every commit lands in the
//     main file, so the file can be linked as soon as the pool closes.
//   - [ModeReadOnly]: the file is opened read-only and never modified.
//     Used for the index of a committed generation.
//
// # Pragmas
//
// Every connection gets synchronous=NORMAL, busy_timeout=5000,
// foreign_keys=OFF, cache_size=-8192 and temp_store=MEMORY. The
// journal mode pragma depends on the mode.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:      filepath.Join(next, "cache.db3"),
//	    Mode:      sqlitepool.ModeRollback,
//	    PoolSize:  1,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
package sqlitepool
