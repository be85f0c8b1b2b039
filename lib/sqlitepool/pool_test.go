// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/dfloer/dronefly/lib/sqlitepool"
)

const testSchema = `
CREATE TABLE IF NOT EXISTS numbers (value INTEGER NOT NULL);
`

func TestPragmasApplied(t *testing.T) {
	pool := openTestPool(t, "")

	err := pool.Do(context.Background(), func(conn *sqlite.Conn) error {
		checks := map[string]string{
			"PRAGMA journal_mode": "wal",
			"PRAGMA synchronous":  "1",
			"PRAGMA foreign_keys": "1",
		}
		for pragma, want := range checks {
			var got string
			err := sqlitex.Execute(conn, pragma, &sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					got = stmt.ColumnText(0)
					return nil
				},
			})
			if err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
			if got != want {
				t.Errorf("%s = %q, want %q", pragma, got, want)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSchemaAppliedOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	for range 2 {
		pool, err := sqlitepool.Open(sqlitepool.Config{Path: path, Schema: testSchema})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		err = pool.Do(context.Background(), func(conn *sqlite.Conn) error {
			return sqlitex.Execute(conn, "INSERT INTO numbers (value) VALUES (?)", &sqlitex.ExecOptions{
				Args: []any{1},
			})
		})
		if err != nil {
			t.Fatalf("INSERT: %v", err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}

func TestBadSchemaRejected(t *testing.T) {
	_, err := sqlitepool.Open(sqlitepool.Config{
		Path:   filepath.Join(t.TempDir(), "bad.db"),
		Schema: "CREATE TABLE (",
	})
	if err == nil {
		t.Fatal("expected error for invalid schema")
	}
}

func TestConcurrentReads(t *testing.T) {
	pool := openTestPool(t, testSchema)

	err := pool.Do(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, `INSERT INTO numbers (value) VALUES (1), (2), (3), (4), (5);`, nil)
	})
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}

	const goroutineCount = 8
	var waitGroup sync.WaitGroup
	failures := make(chan error, goroutineCount)

	for range goroutineCount {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			err := pool.Do(context.Background(), func(conn *sqlite.Conn) error {
				var sum int64
				err := sqlitex.Execute(conn, "SELECT value FROM numbers", &sqlitex.ExecOptions{
					ResultFunc: func(stmt *sqlite.Stmt) error {
						sum += stmt.ColumnInt64(0)
						return nil
					},
				})
				if err != nil {
					return err
				}
				if sum != 15 {
					return fmt.Errorf("sum = %d, want 15", sum)
				}
				return nil
			})
			if err != nil {
				failures <- err
			}
		}()
	}

	waitGroup.Wait()
	close(failures)
	for err := range failures {
		t.Error(err)
	}
}

func TestDoPropagatesError(t *testing.T) {
	pool := openTestPool(t, "")
	sentinel := errors.New("stop")
	if err := pool.Do(context.Background(), func(*sqlite.Conn) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("Do error = %v, want sentinel", err)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Fatal("expected error for empty Path")
	}
}

func TestContextCancellation(t *testing.T) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     filepath.Join(t.TempDir(), "cancel.db"),
		PoolSize: 1,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pool.Close()

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Take(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func openTestPool(t *testing.T, schema string) *sqlitepool.Pool {
	t.Helper()

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   filepath.Join(t.TempDir(), "test.db"),
		Schema: schema,
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
