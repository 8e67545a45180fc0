package adapters

import (
	"context"
	"errors"
)

// ErrSerializationConflict is the normalized form of driver-specific serialization
// and deadlock failures (SQLSTATE 40001 and 40P01). Transactions failing with it
// left no effect and can be retried as a whole.
var ErrSerializationConflict = errors.New("transaction serialization conflict")

// DBAdapter defines the interface for database operations needed by the booking engine.
type DBAdapter interface {
	// Begin starts a read-write transaction.
	Begin(ctx context.Context) (DBTx, error)

	// BeginReadOnly starts a read-only transaction at an isolation level that
	// observes a single consistent snapshot of the database.
	BeginReadOnly(ctx context.Context) (DBTx, error)
}

// DBTx defines the interface for a database transaction.
type DBTx interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
