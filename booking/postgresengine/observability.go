package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/unitloan/devicebooking/booking"
)

const (
	operationBook         = "book"
	operationReturn       = "return"
	operationAvailability = "availability"

	actionBook   = "book"
	actionReturn = "return"
	actionRead   = "read"

	spanNameBook         = "bookingengine.book"
	spanNameReturn       = "bookingengine.return"
	spanNameAvailability = "bookingengine.availability"

	statusSuccess = "success"
	statusError   = "error"

	metricOperationDuration  = "bookingengine_operation_duration_seconds"
	metricOperationErrors    = "bookingengine_operation_errors_total"
	metricCapacityRejections = "bookingengine_capacity_rejections_total"

	spanAttrOperation = "operation"
	spanAttrDeviceID  = "device_id"
	spanAttrErrorType = "error_type"

	labelStatus = "status"

	errorTypeUnknownDevice    = "unknown_device"
	errorTypeCapacityExceeded = "capacity_exceeded"
	errorTypeNoActiveBooking  = "no_active_booking"
	errorTypeLedgerOutOfSync  = "ledger_out_of_sync"
	errorTypeConcurrency      = "concurrency_conflict"
	errorTypeStorage          = "storage_failure"
	errorTypeOther            = "other"
)

// logQueryWithDurationContext logs SQL queries with execution time at debug level,
// preferring the contextual logger when one is configured.
func (be BookingEngine) logQueryWithDurationContext(
	ctx context.Context,
	sqlQuery string,
	action string,
	duration time.Duration,
) {
	if be.contextualLogger != nil {
		be.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if be.logger != nil {
		be.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperationContext logs operational information at info level.
func (be BookingEngine) logOperationContext(ctx context.Context, action string, args ...any) {
	if be.contextualLogger != nil {
		be.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if be.logger != nil {
		be.logger.Info(logMsgOperation+action, args...)
	}
}

// logErrorContext logs error information at the error level.
func (be BookingEngine) logErrorContext(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if be.contextualLogger != nil {
		be.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if be.logger != nil {
		be.logger.Error(message, allArgs...)
	}
}

// logWarnContext logs non-critical issues at the warning level.
func (be BookingEngine) logWarnContext(ctx context.Context, message string, args ...any) {
	if be.contextualLogger != nil {
		be.contextualLogger.WarnContext(ctx, message, args...)
		return
	}

	if be.logger != nil {
		be.logger.Warn(message, args...)
	}
}

// logError logs error information without context, for failures outside a request scope.
func (be BookingEngine) logError(message string, err error, args ...any) {
	if be.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		be.logger.Error(message, allArgs...)
	}
}

// recordOperationSuccess records duration metrics for a successful operation.
func (be BookingEngine) recordOperationSuccess(_ context.Context, operation string, duration time.Duration) {
	if be.metricsCollector == nil {
		return
	}

	be.metricsCollector.RecordDuration(metricOperationDuration, duration, map[string]string{
		spanAttrOperation: operation,
		labelStatus:       statusSuccess,
	})
}

// recordOperationError records duration and error metrics for a failed operation.
func (be BookingEngine) recordOperationError(_ context.Context, operation string, err error, duration time.Duration) {
	if be.metricsCollector == nil {
		return
	}

	be.metricsCollector.RecordDuration(metricOperationDuration, duration, map[string]string{
		spanAttrOperation: operation,
		labelStatus:       statusError,
	})

	be.metricsCollector.IncrementCounter(metricOperationErrors, map[string]string{
		spanAttrOperation: operation,
		spanAttrErrorType: errorType(err),
	})
}

// recordCapacityRejection counts guarded updates rejected at the capacity ceiling.
func (be BookingEngine) recordCapacityRejection(_ context.Context) {
	if be.metricsCollector == nil {
		return
	}

	be.metricsCollector.IncrementCounter(metricCapacityRejections, map[string]string{
		spanAttrOperation: operationBook,
	})
}

// startOperationSpan starts a tracing span if the tracing collector is configured.
func (be BookingEngine) startOperationSpan(
	ctx context.Context,
	spanName string,
	deviceID booking.DeviceID,
) (context.Context, SpanContext) {
	if be.tracingCollector == nil {
		return ctx, nil
	}

	return be.tracingCollector.StartSpan(ctx, spanName, map[string]string{
		spanAttrDeviceID: fmt.Sprintf("%d", int32(deviceID)),
	})
}

// finishOperationSpan finishes a tracing span if one was started.
func (be BookingEngine) finishOperationSpan(span SpanContext, status string) {
	if be.tracingCollector == nil || span == nil {
		return
	}

	be.tracingCollector.FinishSpan(span, status, nil)
}

// statusFromError maps an operation error onto a span status.
func statusFromError(err error) string {
	if err == nil {
		return statusSuccess
	}

	return statusError
}

// errorType extracts a string representation of the error class for metrics labeling.
func errorType(err error) string {
	switch {
	case errors.Is(err, booking.ErrUnknownDevice):
		return errorTypeUnknownDevice
	case errors.Is(err, booking.ErrCapacityExceeded):
		return errorTypeCapacityExceeded
	case errors.Is(err, booking.ErrNoActiveBooking):
		return errorTypeNoActiveBooking
	case errors.Is(err, booking.ErrLedgerOutOfSync):
		return errorTypeLedgerOutOfSync
	case errors.Is(err, booking.ErrConcurrencyConflict):
		return errorTypeConcurrency
	case errors.Is(err, booking.ErrStorageFailure):
		return errorTypeStorage
	default:
		return errorTypeOther
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
