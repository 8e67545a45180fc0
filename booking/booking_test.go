package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unitloan/devicebooking/booking"
)

func Test_BuildBookingRecord_AssignsIdentityAndKeepsInput(t *testing.T) {
	// arrange
	bookedAt := time.UnixMilli(100).UTC()

	// act
	record, err := booking.BuildBookingRecord(4, "alice", bookedAt)

	// assert
	assert.NoError(t, err)
	assert.NotEqual(t, record.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, booking.DeviceID(4), record.DeviceID)
	assert.Equal(t, "alice", record.Holder)
	assert.Equal(t, bookedAt, record.BookedAt)
}

func Test_BuildBookingRecord_GeneratesTimeOrderedIdentifiers(t *testing.T) {
	// arrange + act
	first, err := booking.BuildBookingRecord(1, "alice", time.Now().UTC())
	assert.NoError(t, err)
	second, err := booking.BuildBookingRecord(1, "bob", time.Now().UTC())
	assert.NoError(t, err)

	// assert: v7 identifiers order by creation time, the return path relies on it
	assert.Less(t, first.ID.String(), second.ID.String())
}

func Test_BuildBookingRecord_WithBlankHolder_ShouldFail(t *testing.T) {
	for _, holder := range []string{"", "   ", "\t\n"} {
		_, err := booking.BuildBookingRecord(1, holder, time.Now().UTC())

		assert.ErrorIs(t, err, booking.ErrEmptyHolder)
	}
}

func Test_DeviceAvailability_FreeUnits(t *testing.T) {
	availability := booking.DeviceAvailability{DeviceID: 1, Quantity: 1, MaxQuantity: 3}

	assert.Equal(t, int32(2), availability.FreeUnits())
	assert.False(t, availability.AtCapacity())

	availability.Quantity = 3
	assert.Equal(t, int32(0), availability.FreeUnits())
	assert.True(t, availability.AtCapacity())
}

func Test_StaticCatalog_ContainsOnlyProvisionedDevices(t *testing.T) {
	// arrange
	catalog := booking.BuildStaticCatalog(1, 2, 3)

	// act + assert
	assert.True(t, catalog.Contains(2))
	assert.False(t, catalog.Contains(4))
	assert.Equal(t, []booking.DeviceID{1, 2, 3}, catalog.DeviceIDs())
}

func Test_StaticCatalog_DeduplicatesPreservingOrder(t *testing.T) {
	catalog := booking.BuildStaticCatalog(3, 1, 3, 2, 1)

	assert.Equal(t, []booking.DeviceID{3, 1, 2}, catalog.DeviceIDs())
}
