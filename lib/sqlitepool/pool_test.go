// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/boldos/bold/lib/sqlitepool"
)

func TestRollbackJournal(t *testing.T) {
	pool := openTestPool(t, filepath.Join(t.TempDir(), "test.db"), sqlitepool.ModeRollback, nil)

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	if got := queryText(t, conn, "PRAGMA journal_mode"); got != "delete" {
		t.Errorf("journal_mode = %q, want %q", got, "delete")
	}
}

func TestRollbackFileIsCompleteAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db3")
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     path,
		Mode:     sqlitepool.ModeRollback,
		PoolSize: 1,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if err := sqlitex.ExecuteScript(conn, `
		CREATE TABLE numbers (value INTEGER NOT NULL);
		INSERT INTO numbers (value) VALUES (1), (2), (3);
	`, nil); err != nil {
		t.Fatalf("ExecuteScript: %v", err)
	}
	pool.Put(conn)
	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, sidecar := range []string{path + "-wal", path + "-journal"} {
		if _, err := os.Stat(sidecar); err == nil {
			t.Errorf("%s should not exist after close", sidecar)
		}
	}

	// A hardlink of the main file sees every row.
	linked := filepath.Join(t.TempDir(), "linked.db3")
	if err := os.Link(path, linked); err != nil {
		t.Fatalf("Link: %v", err)
	}
	reader := openTestPool(t, linked, sqlitepool.ModeReadOnly, nil)
	conn, err = reader.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer reader.Put(conn)
	if got := queryText(t, conn, "SELECT SUM(value) FROM numbers"); got != "6" {
		t.Errorf("sum = %s, want 6", got)
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.db")
	writer := openTestPool(t, path, sqlitepool.ModeRollback, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, `CREATE TABLE IF NOT EXISTS t (v TEXT);`, nil)
	})
	conn, err := writer.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	writer.Put(conn)

	reader := openTestPool(t, path, sqlitepool.ModeReadOnly, nil)
	conn, err = reader.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer reader.Put(conn)
	if err := sqlitex.Execute(conn, "INSERT INTO t (v) VALUES ('x')", nil); err == nil {
		t.Fatal("expected INSERT to fail on a read-only pool")
	}
}

func TestReadOnlyMissingFile(t *testing.T) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path: filepath.Join(t.TempDir(), "absent.db"),
		Mode: sqlitepool.ModeReadOnly,
	})
	if err != nil {
		return
	}
	defer pool.Close()
	if conn, err := pool.Take(context.Background()); err == nil {
		pool.Put(conn)
		t.Fatal("expected a missing read-only database to be reported")
	}
}

func TestOnConnect(t *testing.T) {
	var called bool
	pool := openTestPool(t, filepath.Join(t.TempDir(), "test.db"), sqlitepool.ModeRollback, func(conn *sqlite.Conn) error {
		called = true
		return nil
	})
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)
	if !called {
		t.Error("OnConnect was not called")
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Fatal("expected error for empty Path")
	}
}

func TestContextCancellation(t *testing.T) {
	pool := openTestPool(t, filepath.Join(t.TempDir(), "cancel.db"), sqlitepool.ModeRollback, nil)

	// Exhaust the pool, then ask again with a cancelled context.
	var held []*sqlite.Conn
	for range 4 {
		conn, err := pool.Take(context.Background())
		if err != nil {
			t.Fatalf("Take: %v", err)
		}
		held = append(held, conn)
	}
	defer func() {
		for _, conn := range held {
			pool.Put(conn)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Take(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func openTestPool(t *testing.T, path string, mode sqlitepool.Mode, onConnect func(*sqlite.Conn) error) *sqlitepool.Pool {
	t.Helper()
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      path,
		Mode:      mode,
		PoolSize:  4,
		OnConnect: onConnect,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return pool
}

func queryText(t *testing.T, conn *sqlite.Conn, query string) string {
	t.Helper()
	var result string
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			result = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return result
}
