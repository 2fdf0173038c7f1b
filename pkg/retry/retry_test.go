package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fast(n int) []Option {
	return []Option{
		WithMaxAttempts(n),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(2 * time.Millisecond),
		WithJitter(0),
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	var retried []int
	opts := append(fast(3), WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		retried = append(retried, attempt)
	}))

	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	}, opts...)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoGivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errFlaky
	}, fast(2)...)

	assert.Equal(t, 2, calls)
	assert.Same(t, errFlaky, err)
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errFlaky)
	}, fast(5)...)

	assert.Equal(t, 1, calls)
	assert.Same(t, errFlaky, err)
	assert.True(t, IsPermanent(Permanent(errFlaky)))
	assert.Nil(t, Permanent(nil))
}

func TestDoRetryIf(t *testing.T) {
	errFatal := errors.New("fatal")
	opts := append(fast(4), WithRetryIf(func(err error) bool { return errors.Is(err, errFlaky) }))

	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errFlaky
	}, opts...)
	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, errFlaky)

	calls = 0
	err = Do(context.Background(), func(context.Context) error {
		calls++
		return errFatal
	}, opts...)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errFatal)
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		return nil
	})
	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoCancelDuringWaitReturnsLastError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Do(ctx, func(context.Context) error {
		cancel()
		return errFlaky
	}, WithMaxAttempts(3), WithInitialDelay(time.Hour), WithJitter(0))
	assert.Same(t, errFlaky, err)
}

func TestBackoffCapped(t *testing.T) {
	r := New(WithInitialDelay(10*time.Millisecond), WithMaxDelay(50*time.Millisecond), WithJitter(0))
	assert.Equal(t, 10*time.Millisecond, r.Backoff(1))
	assert.Equal(t, 20*time.Millisecond, r.Backoff(2))
	assert.Equal(t, 50*time.Millisecond, r.Backoff(5))
	assert.Equal(t, 3, r.MaxAttempts())
}

func TestBackoffJitterBounds(t *testing.T) {
	r := New(WithInitialDelay(100*time.Millisecond), WithJitter(0.5))
	for i := 0; i < 50; i++ {
		d := r.Backoff(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}
