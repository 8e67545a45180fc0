package httpapi

import (
	"time"

	"github.com/unitloan/devicebooking/booking"
)

// BookingRequest is the request body for the book and return endpoints.
// The timestamp is UTC epoch milliseconds; it is required for book and
// ignored for return.
type BookingRequest struct {
	Timestamp *int64 `json:"timestamp,omitempty"`
	UserName  string `json:"userName,omitempty"`
	DeviceID  *int32 `json:"deviceId"`
}

// AvailabilitySlotResponse is one entry of the availability endpoint response:
// either a checked-out unit with holder and timestamp, or a free unit with an
// empty holder and a null timestamp.
type AvailabilitySlotResponse struct {
	DeviceID  int32  `json:"deviceId"`
	UserName  string `json:"userName"`
	Timestamp *int64 `json:"timestamp"`
	Available bool   `json:"available"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// availabilitySlotResponsesFrom converts the engine's slot projection into the wire format.
func availabilitySlotResponsesFrom(slots booking.AvailabilitySlots) []AvailabilitySlotResponse {
	responses := make([]AvailabilitySlotResponse, 0, len(slots))

	for _, slot := range slots {
		response := AvailabilitySlotResponse{
			DeviceID:  int32(slot.DeviceID),
			UserName:  slot.Holder,
			Available: slot.Available,
		}

		if !slot.Available {
			millis := slot.BookedAt.UnixMilli()
			response.Timestamp = &millis
		}

		responses = append(responses, response)
	}

	return responses
}

// timestampToTime converts UTC epoch milliseconds into a time.Time.
func timestampToTime(millis int64) time.Time {
	return time.UnixMilli(millis).UTC()
}
