package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/unitloan/devicebooking/booking"
	"github.com/unitloan/devicebooking/shell"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BookingEngine defines the interface needed by the Handler for booking operations.
type BookingEngine interface {
	BookDevice(ctx context.Context, deviceID booking.DeviceID, holder string, bookedAt time.Time) error
	ReturnDevice(ctx context.Context, deviceID booking.DeviceID) error
	ListAvailability(ctx context.Context, deviceID booking.DeviceID) (booking.AvailabilitySlots, error)
}

// Handler serves the booking HTTP endpoints. Book and return are executed
// through the retry shell, so transient serialization conflicts are retried
// before a failure reaches the client.
type Handler struct {
	engine       BookingEngine
	catalog      booking.Catalog
	retryOptions []shell.RetryOption
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...shell.RetryOption) HandlerOption {
	return func(h *Handler) {
		h.retryOptions = opts
	}
}

// NewHandler creates a new Handler with optional configuration.
func NewHandler(engine BookingEngine, catalog booking.Catalog, opts ...HandlerOption) *Handler {
	handler := &Handler{
		engine:  engine,
		catalog: catalog,
	}

	for _, opt := range opts {
		opt(handler)
	}

	return handler
}

// HandleBook books one unit of a device for a user.
func (h *Handler) HandleBook(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DeviceID == nil || req.UserName == "" || req.Timestamp == nil {
		writeError(w, http.StatusBadRequest, "deviceId, userName and timestamp are required")
		return
	}

	deviceID := booking.DeviceID(*req.DeviceID)
	if !h.catalog.Contains(deviceID) {
		writeError(w, http.StatusNotFound, "device is not part of the catalog")
		return
	}

	err := shell.RetryWithExponentialBackoff(r.Context(), func(ctx context.Context) error {
		return h.engine.BookDevice(ctx, deviceID, req.UserName, timestampToTime(*req.Timestamp))
	}, h.retryOptions...)

	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleReturn releases the most recently booked unit of a device.
func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DeviceID == nil {
		writeError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	deviceID := booking.DeviceID(*req.DeviceID)
	if !h.catalog.Contains(deviceID) {
		writeError(w, http.StatusNotFound, "device is not part of the catalog")
		return
	}

	err := shell.RetryWithExponentialBackoff(r.Context(), func(ctx context.Context) error {
		return h.engine.ReturnDevice(ctx, deviceID)
	}, h.retryOptions...)

	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleAvailability returns the full slot projection for a device.
// A device that is unknown, or provisioned without capacity, yields 404.
func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	rawDeviceID := chi.URLParam(r, "deviceID")

	parsedDeviceID, parseErr := strconv.ParseInt(rawDeviceID, 10, 32)
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "device identifier must be an integer")
		return
	}

	slots, err := h.engine.ListAvailability(r.Context(), booking.DeviceID(parsedDeviceID))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if len(slots) == 0 {
		writeError(w, http.StatusNotFound, "device is not provisioned")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(availabilitySlotResponsesFrom(slots))
}

// writeEngineError maps the engine's error taxonomy onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrUnknownDevice):
		writeError(w, http.StatusNotFound, "device is not provisioned")
	case errors.Is(err, booking.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "all units of this device are checked out")
	case errors.Is(err, booking.ErrNoActiveBooking):
		writeError(w, http.StatusConflict, "no active booking exists for this device")
	case errors.Is(err, booking.ErrEmptyHolder):
		writeError(w, http.StatusBadRequest, "userName must not be blank")
	case errors.Is(err, booking.ErrConcurrencyConflict), errors.Is(err, booking.ErrStorageFailure):
		writeError(w, http.StatusServiceUnavailable, "temporary storage failure, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
