package adapters

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func Test_NormalizePGXError(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		wantConflict bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock detected", &pgconn.PgError{Code: "40P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			normalized := normalizePGXError(tc.err)

			if tc.err == nil {
				assert.NoError(t, normalized)
				return
			}

			assert.Equal(t, tc.wantConflict, errors.Is(normalized, ErrSerializationConflict))
			assert.ErrorIs(t, normalized, tc.err, "the driver error must stay inspectable")
		})
	}
}

func Test_NormalizeSQLError(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		wantConflict bool
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock detected", &pq.Error{Code: "40P01"}, true},
		{"check violation", &pq.Error{Code: "23514"}, false},
		{"plain error", errors.New("driver: bad connection"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			normalized := normalizeSQLError(tc.err)

			assert.Equal(t, tc.wantConflict, errors.Is(normalized, ErrSerializationConflict))
			assert.ErrorIs(t, normalized, tc.err)
		})
	}
}
