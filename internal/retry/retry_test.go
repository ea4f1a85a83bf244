package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransport = errors.New("transport down")

func TestFixedSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Fixed(context.Background(), 5, time.Millisecond, func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 2 {
			return errTransport
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestFixedGivesUp(t *testing.T) {
	calls := 0
	err := Fixed(context.Background(), 3, time.Millisecond, func(ctx context.Context, attempt int) error {
		calls++
		return errTransport
	})
	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, 4, calls)
}

func TestFixedZeroRetries(t *testing.T) {
	calls := 0
	err := Fixed(context.Background(), 0, time.Hour, func(ctx context.Context, attempt int) error {
		calls++
		return errTransport
	})
	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, 1, calls)
}

func TestFixedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Fixed(ctx, 10, time.Hour, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errTransport
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffRetries(t *testing.T) {
	calls := 0
	err := Backoff(context.Background(), 2, time.Millisecond, 4*time.Millisecond, func(ctx context.Context, attempt int) error {
		calls++
		return errTransport
	})
	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, 3, calls)
}
