package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker(time.Minute)
	ctx := context.Background()

	release, err := l.Acquire(ctx, VerifyKey("order_1"))
	require.NoError(t, err)

	_, err = l.Acquire(ctx, VerifyKey("order_1"))
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(ctx, VerifyKey("order_2"))
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, VerifyKey("order_1"))
	require.NoError(t, err)
	again()
}

func TestLocalLockerExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker(time.Second)
	l.clock = func() time.Time { return now }

	stale, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	// The expired holder must not free the new holder's lock.
	stale()
	_, err = l.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLocked)
	fresh()
}

func TestLocalLockerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalLocker(time.Second).Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisLockerUnreachable(t *testing.T) {
	client := NewRedisClient("127.0.0.1:1", "", 0)
	defer client.Close()

	_, err := NewRedisLocker(client, time.Second).Acquire(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}
