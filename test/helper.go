// Package test provides shared helpers for the Postgres integration tests.
package test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitloan/devicebooking/booking"
	"github.com/unitloan/devicebooking/shell/config"
)

// CreateTestConnPool connects to the test database, skipping the test when no
// database is reachable so the suite can run without local infrastructure.
func CreateTestConnPool(t testing.TB) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	require.NoError(t, err, "error creating the connection pool")

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Skipf("test database is not reachable: %v", err)
	}

	t.Cleanup(pool.Close)

	return pool
}

// CreateTestSQLDB connects to the test database through database/sql with the
// lib/pq driver, skipping the test when no database is reachable.
func CreateTestSQLDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("postgres", config.PostgresTestDSN())
	require.NoError(t, err, "error opening the database connection")

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		t.Skipf("test database is not reachable: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateTestSQLX connects to the test database through sqlx with the lib/pq
// driver, skipping the test when no database is reachable.
func CreateTestSQLX(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("postgres", config.PostgresTestDSN())
	require.NoError(t, err, "error opening the database connection")

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		t.Skipf("test database is not reachable: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// SetupBookingTables creates the availability and ledger tables if they do not
// exist yet, mirroring the schema migration.
func SetupBookingTables(t testing.TB, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS device_availability (
			device_id    integer PRIMARY KEY,
			quantity     integer NOT NULL DEFAULT 0,
			max_quantity integer NOT NULL,
			CHECK (quantity >= 0 AND quantity <= max_quantity)
		)`)
	require.NoError(t, err, "error creating the availability table")

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS booking_records (
			id        uuid PRIMARY KEY,
			device_id integer NOT NULL REFERENCES device_availability (device_id),
			holder    text NOT NULL,
			booked_at timestamptz NOT NULL
		)`)
	require.NoError(t, err, "error creating the ledger table")

	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS booking_records_device_recency
			ON booking_records (device_id, booked_at DESC, id DESC)`)
	require.NoError(t, err, "error creating the recency index")
}

// CleanUpBookings truncates both tables so every test starts from a blank pool.
func CleanUpBookings(t testing.TB, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `TRUNCATE TABLE booking_records, device_availability`)
	assert.NoError(t, err, "error cleaning up the booking tables")
}

// GivenDeviceProvisioned inserts an availability row for a device with the
// desired capacity and checked-out count.
func GivenDeviceProvisioned(t testing.TB, pool *pgxpool.Pool, deviceID booking.DeviceID, maxQuantity int32, quantity int32) {
	t.Helper()

	_, err := pool.Exec(
		context.Background(),
		`INSERT INTO device_availability (device_id, quantity, max_quantity) VALUES ($1, $2, $3)`,
		deviceID, quantity, maxQuantity,
	)
	assert.NoError(t, err, "error in arranging test data")
}

// QueryQuantity reads the checked-out counter for a device directly.
func QueryQuantity(t testing.TB, pool *pgxpool.Pool, deviceID booking.DeviceID) int32 {
	t.Helper()

	var quantity int32
	err := pool.QueryRow(
		context.Background(),
		`SELECT quantity FROM device_availability WHERE device_id = $1`,
		deviceID,
	).Scan(&quantity)
	assert.NoError(t, err, "error reading the availability counter")

	return quantity
}

// CountLedgerRows counts the booking records for a device directly.
func CountLedgerRows(t testing.TB, pool *pgxpool.Pool, deviceID booking.DeviceID) int32 {
	t.Helper()

	var count int32
	err := pool.QueryRow(
		context.Background(),
		`SELECT count(*) FROM booking_records WHERE device_id = $1`,
		deviceID,
	).Scan(&count)
	assert.NoError(t, err, "error counting the ledger rows")

	return count
}
