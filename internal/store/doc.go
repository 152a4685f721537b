// Package store persists the usage ledger and the download audit trail in
// SQLite (modernc.org/sqlite, no cgo).
//
// The database runs in WAL mode with a busy timeout, and writes retry briefly
// on SQLITE_BUSY so several request goroutines can share one file. Usage
// increments are a single INSERT ... ON CONFLICT DO UPDATE ... RETURNING
// statement, which keeps read-add-write atomic even across processes.
//
// The schema is embedded and versioned; a version mismatch fails Open with
// ErrSchemaMismatch instead of migrating silently.
package store
