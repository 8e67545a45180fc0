package booking_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/unitloan/devicebooking/booking"
)

func Test_BuildAvailabilitySlots_AllUnitsFree(t *testing.T) {
	// arrange
	availability := booking.DeviceAvailability{DeviceID: 1, Quantity: 0, MaxQuantity: 2}

	// act
	slots := booking.BuildAvailabilitySlots(availability, nil)

	// assert
	assert.Len(t, slots, 2)
	for _, slot := range slots {
		assert.True(t, slot.Available)
		assert.Empty(t, slot.Holder)
		assert.True(t, slot.BookedAt.IsZero())
		assert.Equal(t, booking.DeviceID(1), slot.DeviceID)
	}
}

func Test_BuildAvailabilitySlots_BookedUnitsComeFirst_MostRecentFirst(t *testing.T) {
	// arrange
	availability := booking.DeviceAvailability{DeviceID: 3, Quantity: 2, MaxQuantity: 3}
	bobAt := time.UnixMilli(200).UTC()
	aliceAt := time.UnixMilli(100).UTC()
	records := []booking.BookingRecord{
		{DeviceID: 3, Holder: "bob", BookedAt: bobAt},
		{DeviceID: 3, Holder: "alice", BookedAt: aliceAt},
	}

	// act
	slots := booking.BuildAvailabilitySlots(availability, records)

	// assert
	assert.Len(t, slots, 3)
	assert.Equal(t, "bob", slots[0].Holder)
	assert.Equal(t, bobAt, slots[0].BookedAt)
	assert.False(t, slots[0].Available)
	assert.Equal(t, "alice", slots[1].Holder)
	assert.Equal(t, aliceAt, slots[1].BookedAt)
	assert.False(t, slots[1].Available)
	assert.True(t, slots[2].Available)
	assert.Empty(t, slots[2].Holder)
}

func Test_BuildAvailabilitySlots_NoCapacity_ProjectsToEmptySequence(t *testing.T) {
	slots := booking.BuildAvailabilitySlots(booking.DeviceAvailability{DeviceID: 9, MaxQuantity: 0}, nil)

	assert.Empty(t, slots)
}

func Test_BuildAvailabilitySlots_SurplusRecords_AreIgnored(t *testing.T) {
	// arrange: more ledger records than the counter admits
	availability := booking.DeviceAvailability{DeviceID: 5, Quantity: 1, MaxQuantity: 2}
	records := []booking.BookingRecord{
		{DeviceID: 5, Holder: "bob", BookedAt: time.UnixMilli(200).UTC()},
		{DeviceID: 5, Holder: "alice", BookedAt: time.UnixMilli(100).UTC()},
	}

	// act
	slots := booking.BuildAvailabilitySlots(availability, records)

	// assert
	assert.Len(t, slots, 2)
	assert.Equal(t, "bob", slots[0].Holder)
	assert.True(t, slots[1].Available)
}

func Test_BuildAvailabilitySlots_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxQuantity := rapid.Int32Range(1, 50).Draw(rt, "maxQuantity")
		quantity := rapid.Int32Range(0, maxQuantity).Draw(rt, "quantity")

		availability := booking.DeviceAvailability{
			DeviceID:    booking.DeviceID(rapid.Int32Range(1, 1000).Draw(rt, "deviceID")),
			Quantity:    quantity,
			MaxQuantity: maxQuantity,
		}

		records := make([]booking.BookingRecord, 0, quantity)
		for i := int32(0); i < quantity; i++ {
			records = append(records, booking.BookingRecord{
				DeviceID: availability.DeviceID,
				Holder:   fmt.Sprintf("holder-%d", i),
				BookedAt: time.UnixMilli(int64(1000 - i)).UTC(),
			})
		}

		slots := booking.BuildAvailabilitySlots(availability, records)

		// The projection always has exactly maxQuantity entries.
		if int32(len(slots)) != maxQuantity {
			rt.Fatalf("expected %d slots, got %d", maxQuantity, len(slots))
		}

		// The first quantity entries are the booked units in record order,
		// the remainder are free.
		for i, slot := range slots {
			if int32(i) < quantity {
				if slot.Available || slot.Holder != records[i].Holder {
					rt.Fatalf("slot %d should be booked by %s", i, records[i].Holder)
				}
			} else {
				if !slot.Available || slot.Holder != "" || !slot.BookedAt.IsZero() {
					rt.Fatalf("slot %d should be free", i)
				}
			}
		}
	})
}
