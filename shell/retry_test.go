package shell_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unitloan/devicebooking/booking"
	"github.com/unitloan/devicebooking/shell"
)

func Test_RetryWithExponentialBackoff_SucceedsOnFirstAttempt(t *testing.T) {
	// setup
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++

		return nil
	}

	// act
	err := shell.RetryWithExponentialBackoff(ctx, fn)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func Test_RetryWithExponentialBackoff_RetriesOnConcurrencyConflict(t *testing.T) {
	// setup
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		if callCount < 3 {
			return booking.ErrConcurrencyConflict
		}

		return nil
	}

	// act
	err := shell.RetryWithExponentialBackoff(ctx, fn, shell.WithBaseDelay(time.Millisecond))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func Test_RetryWithExponentialBackoff_FailsFastOnPermanentError(t *testing.T) {
	// setup
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++

		return booking.ErrCapacityExceeded
	}

	// act
	err := shell.RetryWithExponentialBackoff(ctx, fn, shell.WithBaseDelay(time.Millisecond))

	// assert
	assert.ErrorIs(t, err, booking.ErrCapacityExceeded)
	assert.Equal(t, 1, callCount, "permanent errors must not be retried")
}

func Test_RetryWithExponentialBackoff_ExhaustsMaxAttempts(t *testing.T) {
	// setup
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++

		return booking.ErrConcurrencyConflict
	}

	// act
	err := shell.RetryWithExponentialBackoff(
		ctx,
		fn,
		shell.WithMaxAttempts(3),
		shell.WithBaseDelay(time.Millisecond),
		shell.WithJitterFactor(0),
	)

	// assert
	assert.ErrorIs(t, err, booking.ErrConcurrencyConflict)
	assert.Equal(t, 3, callCount)
}

func Test_RetryWithExponentialBackoff_RespectsContextCancellation(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		cancel() // cancel while the backoff delay is pending

		return booking.ErrConcurrencyConflict
	}

	// act
	err := shell.RetryWithExponentialBackoff(ctx, fn, shell.WithBaseDelay(time.Second))

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, callCount)
}

func Test_RetryWithExponentialBackoff_DoesNotRetryTimeouts(t *testing.T) {
	// setup
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++

		return context.DeadlineExceeded
	}

	// act
	err := shell.RetryWithExponentialBackoff(ctx, fn, shell.WithBaseDelay(time.Millisecond))

	// assert
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, callCount, "timeouts must fail fast")
}

func Test_RetryWithExponentialBackoff_RetriesWrappedConflicts(t *testing.T) {
	// setup
	ctx := context.Background()
	callCount := 0
	wrapped := errors.Join(booking.ErrConcurrencyConflict, errors.New("serialization failure"))

	fn := func(_ context.Context) error {
		callCount++
		if callCount < 2 {
			return wrapped
		}

		return nil
	}

	// act
	err := shell.RetryWithExponentialBackoff(ctx, fn, shell.WithBaseDelay(time.Millisecond))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 2, callCount)
}

func Test_RetryWithExponentialBackoff_ValidatesOptions(t *testing.T) {
	ctx := context.Background()
	fn := func(_ context.Context) error { return nil }

	err := shell.RetryWithExponentialBackoff(ctx, fn, shell.WithMaxAttempts(0))
	assert.ErrorIs(t, err, shell.ErrInvalidMaxAttempts)

	err = shell.RetryWithExponentialBackoff(ctx, fn, shell.WithBaseDelay(-time.Second))
	assert.ErrorIs(t, err, shell.ErrNegativeBaseDelay)

	err = shell.RetryWithExponentialBackoff(ctx, fn, shell.WithJitterFactor(1.5))
	assert.ErrorIs(t, err, shell.ErrInvalidJitterFactor)
}
