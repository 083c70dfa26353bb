// Package store is the SQLite run journal.
//
// Every run gets a row in runs and every top-level item outcome a row in
// items, keyed by (run_id, seq). Items are append-only: recording the same
// (run_id, seq) twice keeps the first row.
//
// Ordering uses seq, the run loop's logical clock, never timestamps: runs
// by started_seq then id, items by run_id then seq, so two reads of the same
// journal list rows identically.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: items must belong to a recorded run
//
// PRAGMA user_version tracks the schema; Open upgrades older journals and
// refuses ones written by a newer build.
//
// Statement identities are content addressed by ir.StatementID; the stored
// statement column holds its canonical JSON.
package store
