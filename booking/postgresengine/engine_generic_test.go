package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitloan/devicebooking/booking"
	"github.com/unitloan/devicebooking/booking/postgresengine"
	. "github.com/unitloan/devicebooking/test"
)

// engineFactories builds one engine per supported database adapter, all
// talking to the same test database, so the whole suite below runs
// against the pgx, database/sql and sqlx transaction paths alike.
func engineFactories(t *testing.T) map[string]func(t *testing.T) postgresengine.BookingEngine {
	t.Helper()

	return map[string]func(t *testing.T) postgresengine.BookingEngine{
		"pgx": func(t *testing.T) postgresengine.BookingEngine {
			engine, err := postgresengine.NewBookingEngineFromPGXPool(CreateTestConnPool(t))
			require.NoError(t, err)

			return engine
		},
		"sqldb": func(t *testing.T) postgresengine.BookingEngine {
			engine, err := postgresengine.NewBookingEngineFromSQLDB(CreateTestSQLDB(t))
			require.NoError(t, err)

			return engine
		},
		"sqlx": func(t *testing.T) postgresengine.BookingEngine {
			engine, err := postgresengine.NewBookingEngineFromSQLX(CreateTestSQLX(t))
			require.NoError(t, err)

			return engine
		},
	}
}

func Test_Generic_BookReturnAndProject_OnAllAdapters(t *testing.T) {
	for adapterName, buildEngine := range engineFactories(t) {
		t.Run(adapterName, func(t *testing.T) {
			// setup
			pool := CreateTestConnPool(t)
			SetupBookingTables(t, pool)
			CleanUpBookings(t, pool)
			engine := buildEngine(t)

			// arrange
			GivenDeviceProvisioned(t, pool, 1, 2, 0)
			ctx := context.Background()

			// act + assert: book twice, up to capacity
			assert.NoError(t, engine.BookDevice(ctx, 1, "alice", time.UnixMilli(100).UTC()))
			assert.NoError(t, engine.BookDevice(ctx, 1, "bob", time.UnixMilli(200).UTC()))
			assert.ErrorIs(t, engine.BookDevice(ctx, 1, "carol", time.UnixMilli(300).UTC()), booking.ErrCapacityExceeded)

			// the projection shows both bookings most-recent-first
			slots, err := engine.ListAvailability(ctx, 1)
			assert.NoError(t, err)
			require.Len(t, slots, 2)
			assert.Equal(t, "bob", slots[0].Holder)
			assert.Equal(t, "alice", slots[1].Holder)

			// returning releases bob's booking and frees a unit
			assert.NoError(t, engine.ReturnDevice(ctx, 1))
			assert.Equal(t, int32(1), QueryQuantity(t, pool, 1))
			assert.Equal(t, int32(1), CountLedgerRows(t, pool, 1))

			slots, err = engine.ListAvailability(ctx, 1)
			assert.NoError(t, err)
			require.Len(t, slots, 2)
			assert.Equal(t, "alice", slots[0].Holder)
			assert.True(t, slots[1].Available)
		})
	}
}

func Test_Generic_RejectionTaxonomy_OnAllAdapters(t *testing.T) {
	for adapterName, buildEngine := range engineFactories(t) {
		t.Run(adapterName, func(t *testing.T) {
			// setup
			pool := CreateTestConnPool(t)
			SetupBookingTables(t, pool)
			CleanUpBookings(t, pool)
			engine := buildEngine(t)

			// arrange
			GivenDeviceProvisioned(t, pool, 1, 1, 0)
			ctx := context.Background()

			// act + assert
			assert.ErrorIs(t, engine.BookDevice(ctx, 42, "alice", time.UnixMilli(100).UTC()), booking.ErrUnknownDevice)
			assert.ErrorIs(t, engine.ReturnDevice(ctx, 42), booking.ErrUnknownDevice)
			assert.ErrorIs(t, engine.ReturnDevice(ctx, 1), booking.ErrNoActiveBooking)

			_, err := engine.ReadDeviceAvailability(ctx, 42)
			assert.ErrorIs(t, err, booking.ErrUnknownDevice)
		})
	}
}

func Test_Generic_NewBookingEngine_ShouldFail_WithNilDatabaseConnection(t *testing.T) {
	testCases := []struct {
		name        string
		factoryFunc func() (postgresengine.BookingEngine, error)
	}{
		{
			name: "NewBookingEngineFromPGXPool with nil",
			factoryFunc: func() (postgresengine.BookingEngine, error) {
				return postgresengine.NewBookingEngineFromPGXPool(nil)
			},
		},
		{
			name: "NewBookingEngineFromPGXPoolWithReplica with nil",
			factoryFunc: func() (postgresengine.BookingEngine, error) {
				return postgresengine.NewBookingEngineFromPGXPoolWithReplica(nil, nil)
			},
		},
		{
			name: "NewBookingEngineFromSQLDB with nil",
			factoryFunc: func() (postgresengine.BookingEngine, error) {
				return postgresengine.NewBookingEngineFromSQLDB(nil)
			},
		},
		{
			name: "NewBookingEngineFromSQLX with nil",
			factoryFunc: func() (postgresengine.BookingEngine, error) {
				return postgresengine.NewBookingEngineFromSQLX(nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := tc.factoryFunc()

			// assert
			assert.ErrorIs(t, err, booking.ErrNilDatabaseConnection)
		})
	}
}
