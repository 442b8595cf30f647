// Package sqlite provides the engine-backed store.Store.
//
// One Store owns exactly one physical SQLite connection (the pool is capped
// at a single connection), so concurrent callers are serialized by
// database/sql and SQLite itself. No extra locking is layered on top.
//
// Two drivers are supported:
//   - "sqlite3": github.com/mattn/go-sqlite3 (cgo), the default
//   - "sqlite":  modernc.org/sqlite (pure Go)
//
// # Database Configuration
//
//   - WAL mode for file databases: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout: wait for locks instead of failing with SQLITE_BUSY
//
// Every table has the same two columns:
//
//	id   TEXT PRIMARY KEY
//	data TEXT NOT NULL   -- JSON payload, record minus "id"
//
// Values are always bound as parameters. Table names cannot be bound, so
// they are restricted to plain identifiers by store.ValidateTable.
package sqlite
