// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the bot's SQLite database with a fixed set
// of pragmas and a schema applied before first use.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers either
// [Pool.Take] and [Pool.Put] a connection themselves or hand a function
// to [Pool.Do], which borrows a connection for the function's duration.
// A connection is not safe for concurrent use.
//
// Every connection gets:
//
//   - journal_mode=WAL so reads never block the single writer.
//   - synchronous=NORMAL: survives a process crash, not power loss.
//     Everything stored here (registrations, the reaction index) can
//     be recreated by users or ages out anyway.
//   - busy_timeout=5000 to wait out a concurrent writer.
//   - foreign_keys=ON.
//   - temp_store=MEMORY.
//
// Usage:
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/var/lib/dronefly/dronefly.db",
//	    Schema: schema,
//	    Logger: logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.Do(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "DELETE FROM reactions WHERE seen_at < ?", ...)
//	})
//
// There is no query builder. Callers write SQL and use sqlitex.Execute
// with cached statements.
package sqlitepool
