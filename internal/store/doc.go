// Package store executes entity pipelines against SQLite.
//
// Stream is the reference execution engine for the pushdown optimizer: it
// compiles the pushable prefix of a pipeline into one statement, runs it,
// maps storage values back to domain values and evaluates the remaining
// operations in memory with package stream.
//
// Every executed statement is appended to the query_log table with a
// UUIDv7 id and a logical sequence number. Ordering uses seq, never
// timestamps.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - case_sensitive_like=ON: LIKE agrees with Go string matching
package store
