// Package store defines the transactional key-value contract shared by every
// storage backend.
//
// A table holds records keyed by a string identifier. Each record is a
// field-name to value mapping with a mandatory "id" field; everything else is
// an opaque payload serialized to JSON and stored verbatim:
//
//	CREATE TABLE IF NOT EXISTS <table> (id TEXT PRIMARY KEY, data TEXT NOT NULL)
//
// # Semantics
//
//   - Insert assumes absence, Update assumes presence. Neither is an upsert.
//   - Update and Delete on a missing id are silent no-ops.
//   - Query on a missing id fails with ErrNotFound; Exists never does.
//   - Transact commits the unit of work atomically or rolls it back in full
//     and returns the original error wrapped in a *TxError.
//   - ClearTable only deletes when given the ConfirmClear literal.
//
// Backends live in subpackages: store/sqlite (engine-backed) and store/memory
// (in-process). Both are checked by the suite in store/storetest.
package store
