package adapters

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// stdTx wraps standard library sql.Tx to implement the DBTx interface.
// It is shared by the sql.DB and sqlx.DB adapters, which both sit on
// database/sql with the lib/pq driver.
type stdTx struct {
	tx *sql.Tx
}

func (s *stdTx) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, normalizeSQLError(err)
	}

	return &stdRows{rows: rows}, nil
}

func (s *stdTx) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.tx.ExecContext(ctx, query)
	if err != nil {
		return nil, normalizeSQLError(err)
	}

	return &stdResult{result: result}, nil
}

func (s *stdTx) Commit(_ context.Context) error {
	return normalizeSQLError(s.tx.Commit())
}

func (s *stdTx) Rollback(_ context.Context) error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return normalizeSQLError(err)
	}

	return nil
}

// stdRows wraps standard library sql.Rows to implement the DBRows interface.
type stdRows struct {
	rows *sql.Rows
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement the DBResult interface.
type stdResult struct {
	result sql.Result
}

func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}

// normalizeSQLError maps lib/pq serialization failures and deadlocks onto ErrSerializationConflict.
func normalizeSQLError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if code == sqlstateSerializationFailure || code == sqlstateDeadlockDetected {
			return errors.Join(ErrSerializationConflict, err)
		}
	}

	return err
}
