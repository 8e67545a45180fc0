package shell

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/unitloan/devicebooking/booking/postgresengine"
)

// ZerologLogger adapts a zerolog.Logger to the booking engine's Logger and
// ContextualLogger ports. Args are interpreted as alternating key-value
// pairs, the same convention as log/slog.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger creates a new adapter around the given zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// Debug logs a debug message.
func (l *ZerologLogger) Debug(msg string, args ...any) {
	l.emit(l.logger.Debug(), msg, args...)
}

// Info logs an info message.
func (l *ZerologLogger) Info(msg string, args ...any) {
	l.emit(l.logger.Info(), msg, args...)
}

// Warn logs a warning message.
func (l *ZerologLogger) Warn(msg string, args ...any) {
	l.emit(l.logger.Warn(), msg, args...)
}

// Error logs an error message.
func (l *ZerologLogger) Error(msg string, args ...any) {
	l.emit(l.logger.Error(), msg, args...)
}

// DebugContext logs a debug message; the context is carried for port compatibility.
func (l *ZerologLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(l.logger.Debug().Ctx(ctx), msg, args...)
}

// InfoContext logs an info message; the context is carried for port compatibility.
func (l *ZerologLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(l.logger.Info().Ctx(ctx), msg, args...)
}

// WarnContext logs a warning message; the context is carried for port compatibility.
func (l *ZerologLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(l.logger.Warn().Ctx(ctx), msg, args...)
}

// ErrorContext logs an error message; the context is carried for port compatibility.
func (l *ZerologLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(l.logger.Error().Ctx(ctx), msg, args...)
}

func (l *ZerologLogger) emit(event *zerolog.Event, msg string, args ...any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}

		event = event.Interface(key, args[i+1])
	}

	event.Msg(msg)
}

// Ensure ZerologLogger implements both engine logging ports.
var (
	_ postgresengine.Logger           = (*ZerologLogger)(nil)
	_ postgresengine.ContextualLogger = (*ZerologLogger)(nil)
)
