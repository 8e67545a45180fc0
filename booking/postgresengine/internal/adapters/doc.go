// Package adapters provides database adapter implementations for the PostgreSQL booking engine.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, allowing the booking engine to work seamlessly with any
// supported database connection type.
//
// Every engine operation runs inside a transaction, so the adapters expose transactions
// rather than bare query execution, and they normalize driver-specific serialization
// failures into ErrSerializationConflict.
package adapters
