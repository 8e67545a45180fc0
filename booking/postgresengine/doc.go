// Package postgresengine provides the PostgreSQL-backed booking engine.
//
// The engine orchestrates the three booking operations - book, return, and
// availability - as single atomic transactions spanning the availability
// counter table and the booking ledger table. The capacity invariant is
// enforced by a guarded UPDATE whose rows-affected count decides the outcome,
// so a concurrent book on the last free unit can never succeed twice.
//
// The engine works with pgxpool.Pool, sql.DB, or sqlx.DB connections through
// the internal adapters package, and is configured with functional options
// for table names, logging, metrics, and tracing.
package postgresengine
