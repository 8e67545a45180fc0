package booking

import (
	"time"
)

// AvailabilitySlots is an alias type for a slice of AvailabilitySlot.
type AvailabilitySlots = []AvailabilitySlot

// AvailabilitySlot is the projected view of one unit of a device: either
// checked out (holder and timestamp set, Available false) or free (empty
// holder, zero timestamp, Available true).
type AvailabilitySlot struct {
	DeviceID  DeviceID
	Holder    string
	BookedAt  time.Time
	Available bool
}

// BuildAvailabilitySlots expands an availability row and its active ledger
// records into the full slot projection.
//
// The result always has exactly MaxQuantity entries: first the checked-out
// units in most-recent-first order, then the free units. A device with
// MaxQuantity <= 0 projects to an empty sequence.
//
// The records must already be ordered most-recent-first and contain at most
// Quantity entries; surplus records are ignored so a projection never exceeds
// the counter it was read together with.
func BuildAvailabilitySlots(availability DeviceAvailability, records []BookingRecord) AvailabilitySlots {
	if availability.MaxQuantity <= 0 {
		return AvailabilitySlots{}
	}

	slots := make(AvailabilitySlots, 0, availability.MaxQuantity)

	booked := availability.Quantity
	if booked > availability.MaxQuantity {
		booked = availability.MaxQuantity
	}

	for _, record := range records {
		if int32(len(slots)) == booked {
			break
		}

		slots = append(slots, AvailabilitySlot{
			DeviceID:  availability.DeviceID,
			Holder:    record.Holder,
			BookedAt:  record.BookedAt,
			Available: false,
		})
	}

	for int32(len(slots)) < availability.MaxQuantity {
		slots = append(slots, AvailabilitySlot{
			DeviceID:  availability.DeviceID,
			Available: true,
		})
	}

	return slots
}
