package retrier

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	err := New(WithDelay(time.Millisecond)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, attempts)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	err := New(WithDelay(time.Millisecond)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDoReturnsLastErrorWhenExhausted(t *testing.T) {
	attempts := 0
	last := errors.New("still failing")
	err := New(WithDelay(time.Millisecond), WithMaxAttempts(4)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return last
	})
	require.ErrorIs(t, err, last)
	require.Equal(t, 4, attempts)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := New(WithDelay(time.Minute)).Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}

func TestWithMaxAttemptsIgnoresNonPositive(t *testing.T) {
	attempts := 0
	err := New(WithDelay(time.Millisecond), WithMaxAttempts(0)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("transient")
	})
	require.Error(t, err)
	require.Equal(t, defaultMaxAttempts, attempts)
}

func TestDoWithData(t *testing.T) {
	attempts := 0
	got, err := DoWithData(New(WithDelay(time.Millisecond)), context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)
	require.Equal(t, 2, attempts)
}
