package adapters

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter implements DBAdapter for sqlx.DB.
type SQLXAdapter struct {
	db *sqlx.DB
}

// NewSQLXAdapter creates a new SQLX adapter.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// Begin starts a read-write transaction using the sqlx.DB and returns a wrapped transaction.
func (s *SQLXAdapter) Begin(ctx context.Context) (DBTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, normalizeSQLError(err)
	}

	return &stdTx{tx: tx.Tx}, nil
}

// BeginReadOnly starts a repeatable-read, read-only transaction using the sqlx.DB.
func (s *SQLXAdapter) BeginReadOnly(ctx context.Context) (DBTx, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, normalizeSQLError(err)
	}

	return &stdTx{tx: tx.Tx}, nil
}
