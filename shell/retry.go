package shell

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/unitloan/devicebooking/booking"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// retryConfig holds configuration for exponential backoff retry logic.
type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
}

// RetryOption configures the retry behavior.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the maximum number of attempts including the first one.
func WithMaxAttempts(maxAttempts int) RetryOption {
	return func(c *retryConfig) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		c.maxAttempts = maxAttempts

		return nil
	}
}

// WithBaseDelay sets the delay before the first retry; subsequent delays double.
func WithBaseDelay(baseDelay time.Duration) RetryOption {
	return func(c *retryConfig) error {
		if baseDelay < 0 {
			return ErrNegativeBaseDelay
		}

		c.baseDelay = baseDelay

		return nil
	}
}

// WithJitterFactor sets the random jitter fraction added to each backoff delay.
func WithJitterFactor(jitterFactor float64) RetryOption {
	return func(c *retryConfig) error {
		if jitterFactor < 0.0 || jitterFactor > 1.0 {
			return ErrInvalidJitterFactor
		}

		c.jitterFactor = jitterFactor

		return nil
	}
}

// RetryWithExponentialBackoff executes the provided function with exponential
// backoff retry logic, retrying only on retryable errors up to maxAttempts times.
//
// Retry Schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms (with 30% jitter)
// Use Case: serialization conflicts between concurrent book/return transactions
//
// Only booking.ErrConcurrencyConflict is retried - all other errors fail fast.
// In particular, a context.DeadlineExceeded is NOT retryable: retrying timeouts
// during overload creates cascade failures, so timeout errors fail fast to give
// a clear signal about system capacity.
func RetryWithExponentialBackoff(
	ctx context.Context,
	fn RetryableFunc,
	options ...RetryOption,
) error {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: baseDelay * 2^(attempt-1)
			delay := config.baseDelay * time.Duration(1<<(attempt-1))

			// Add jitter to prevent thundering herd
			jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			select {
			case <-time.After(backoffDelay):
				// Continue with retry
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil // Success
		}

		if !isRetryableError(lastErr) {
			return lastErr // Permanent failure
		}
	}

	return lastErr // Max attempts reached
}

// isRetryableError determines if an error should be retried.
// Only concurrency conflicts are considered retryable; they abort the whole
// transaction without effect, so repeating the operation is safe.
func isRetryableError(err error) bool {
	return errors.Is(err, booking.ErrConcurrencyConflict)
}
