package postgresengine

import (
	"context"
	"time"

	"github.com/unitloan/devicebooking/booking"
)

// Logger interface for SQL query logging, operational metrics, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector interface for collecting BookingEngine performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information from BookingEngine operations.
// This interface follows the same dependency-free pattern as MetricsCollector, allowing users to integrate
// with any tracing backend (OpenTelemetry, Jaeger, Zipkin, etc.) by implementing this interface.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
// This interface follows the same dependency-free pattern as MetricsCollector and TracingCollector,
// allowing users to integrate with any logging backend that supports context-based correlation
// and automatic trace/span ID inclusion.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// Option defines a functional option for configuring BookingEngine.
type Option func(*BookingEngine) error

// WithTableNames sets the availability and ledger table names for the BookingEngine.
func WithTableNames(availabilityTable string, ledgerTable string) Option {
	return func(be *BookingEngine) error {
		if availabilityTable == "" || ledgerTable == "" {
			return booking.ErrEmptyTableNameSupplied
		}

		be.availabilityTableName = availabilityTable
		be.ledgerTableName = ledgerTable

		return nil
	}
}

// WithLogger sets the logger for the BookingEngine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: operation outcomes and durations (production-safe)
// Warn level: non-critical issues like rollback failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(be *BookingEngine) error {
		be.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the BookingEngine.
// The metrics collector will receive performance and operational metrics including
// book/return/availability durations, capacity rejections, and storage errors.
func WithMetrics(collector MetricsCollector) Option {
	return func(be *BookingEngine) error {
		be.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the BookingEngine.
// The tracing collector will receive distributed tracing information including
// span creation for book/return/availability operations and error tracking.
func WithTracing(collector TracingCollector) Option {
	return func(be *BookingEngine) error {
		be.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the BookingEngine.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(be *BookingEngine) error {
		be.contextualLogger = logger
		return nil
	}
}
