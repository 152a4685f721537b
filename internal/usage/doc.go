// Package usage implements the per-user daily seconds ledger that gates
// translation work.
//
// The Ledger is the only writer of usage records. It validates keys, derives
// the UTC day, and serializes increments per (user, day) with a keyed mutex on
// top of the store's single-statement upsert, so concurrent requests in one
// process never lose an increment and multiple processes sharing a database
// still converge. Read failures surface as services.ErrLedgerUnavailable and
// are never reported as zero usage.
package usage
