// Package ledger is the sole owner of durable state: receipts, traces,
// per-user quota counters, and chat sessions. It is a thin, WAL-mode
// SQLite store: a single writer connection, idempotent schema creation,
// and prepared statements, spanning the six relational tables this
// system needs.
package ledger
