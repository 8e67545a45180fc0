package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceID identifies a device type in the catalog and the availability store.
type DeviceID int32

// DeviceAvailability is the capacity authority for one device type.
//
// Quantity counts the units currently checked out and moves between 0 and
// MaxQuantity. MaxQuantity is fixed at provisioning time and never changes.
type DeviceAvailability struct {
	DeviceID    DeviceID
	Quantity    int32
	MaxQuantity int32
}

// FreeUnits returns the number of units currently available for checkout.
func (a DeviceAvailability) FreeUnits() int32 {
	return a.MaxQuantity - a.Quantity
}

// AtCapacity reports whether every provisioned unit is checked out.
func (a DeviceAvailability) AtCapacity() bool {
	return a.Quantity >= a.MaxQuantity
}

// BookingRecord is one row of the ownership ledger: who holds one unit of
// which device and since when. Records are pure create/delete, never updated.
//
// The ID is a UUIDv7, so insertion order breaks ties between records sharing
// the same BookedAt when the most recent booking has to be released.
type BookingRecord struct {
	ID       uuid.UUID
	DeviceID DeviceID
	Holder   string
	BookedAt time.Time
}

// BuildBookingRecord is a factory method for BookingRecord.
//
// It assigns a fresh UUIDv7 record ID and returns an error if the holder
// is empty or blank.
func BuildBookingRecord(deviceID DeviceID, holder string, bookedAt time.Time) (BookingRecord, error) {
	if strings.TrimSpace(holder) == "" {
		return BookingRecord{}, ErrEmptyHolder
	}

	id, err := uuid.NewV7()
	if err != nil {
		return BookingRecord{}, err
	}

	return BookingRecord{
		ID:       id,
		DeviceID: deviceID,
		Holder:   holder,
		BookedAt: bookedAt,
	}, nil
}
