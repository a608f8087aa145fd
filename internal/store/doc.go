// Package store provides SQLite-backed durable storage for document
// revisions.
//
// Two tables:
//   - documents: one row per document, pointing at its current revision
//   - revisions: append-only history; body as canonical JSON, field order
//     kept separately
//
// # Ordering
//
// Every revision is stamped with seq from a logical Clock that resumes from
// the highest stored value on Open. Listings use ORDER BY seq ASC, id ASC
// COLLATE BINARY, never timestamps.
//
// # Concurrency
//
// WriteRevision is optimistic: the caller states the revision it loaded and
// the write fails with ErrRevisionConflict if another writer got there
// first. Rewriting an identical body is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
