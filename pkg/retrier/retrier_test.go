package retrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrier_Do(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		r := New()
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("success after retries", func(t *testing.T) {
		r := New(WithMaxRetries(3), WithInitialInterval(1*time.Millisecond))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("fail")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("fail after max retries", func(t *testing.T) {
		r := New(WithMaxRetries(2), WithInitialInterval(1*time.Millisecond))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return errors.New("fail")
		})
		assert.Error(t, err)
		assert.Equal(t, 3, attempts) // 1 initial + 2 retries
	})

	t.Run("context cancellation", func(t *testing.T) {
		r := New(WithMaxRetries(5), WithInitialInterval(100*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())

		attempts := 0
		err := r.Do(ctx, func(ctx context.Context) error {
			attempts++
			if attempts == 2 {
				cancel()
			}
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 2, attempts)
	})
}

func TestRetrier_RetryAfter(t *testing.T) {
	t.Run("honors mandated delay instead of backoff", func(t *testing.T) {
		r := New(WithMaxRetries(2), WithInitialInterval(500*time.Millisecond), WithJitter(0))
		attempts := 0
		start := time.Now()
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			if attempts == 1 {
				return &RetryAfterError{Delay: 20 * time.Millisecond, Err: errors.New("rate limited")}
			}
			return nil
		})
		elapsed := time.Since(start)
		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
		// slept the mandated 20ms, not the 500ms exponential interval
		assert.Less(t, elapsed, 400*time.Millisecond)
		assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	})

	t.Run("does not advance exponential interval", func(t *testing.T) {
		r := New(WithMaxRetries(3), WithInitialInterval(10*time.Millisecond), WithMultiplier(2), WithJitter(0))
		attempts := 0
		var gaps []time.Duration
		last := time.Now()
		err := r.Do(context.Background(), func(ctx context.Context) error {
			gaps = append(gaps, time.Since(last))
			last = time.Now()
			attempts++
			switch attempts {
			case 1:
				return &RetryAfterError{Delay: time.Millisecond, Err: errors.New("rate limited")}
			case 2:
				return errors.New("transient")
			default:
				return nil
			}
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
		// the transient failure after the 429 still backs off from the
		// initial interval, not from a doubled one
		assert.GreaterOrEqual(t, gaps[2], 10*time.Millisecond)
		assert.Less(t, gaps[2], 20*time.Millisecond)
	})

	t.Run("unwraps to the underlying error", func(t *testing.T) {
		inner := errors.New("rate limited")
		err := &RetryAfterError{Delay: time.Second, Err: inner}
		assert.ErrorIs(t, err, inner)
	})
}

func TestRetrier_DoWithData(t *testing.T) {
	t.Run("success returns data", func(t *testing.T) {
		r := New()
		val, err := DoWithData(r, context.Background(), func(ctx context.Context) (string, error) {
			return "success", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "success", val)
	})

	t.Run("fail returns error", func(t *testing.T) {
		r := New(WithMaxRetries(1), WithInitialInterval(1*time.Millisecond))
		val, err := DoWithData(r, context.Background(), func(ctx context.Context) (string, error) {
			return "", errors.New("fail")
		})
		assert.Error(t, err)
		assert.Empty(t, val)
	})
}
