package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = Policy{MaxAttempts: 3, Window: time.Minute, Lockout: 5 * time.Minute}

func TestMemoryLimiter_LocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(testPolicy)
	l.now = func() time.Time { return now }

	left, err := l.Fail(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 2, left)
	left, _ = l.Fail(ctx, "10.0.0.1")
	assert.Equal(t, 1, left)

	wait, err := l.Locked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Zero(t, wait)

	left, _ = l.Fail(ctx, "10.0.0.1")
	assert.Zero(t, left)

	wait, _ = l.Locked(ctx, "10.0.0.1")
	assert.Equal(t, 5*time.Minute, wait)

	wait, _ = l.Locked(ctx, "10.0.0.2")
	assert.Zero(t, wait, "other keys are unaffected")

	now = now.Add(5 * time.Minute)
	wait, _ = l.Locked(ctx, "10.0.0.1")
	assert.Zero(t, wait, "lock expires")

	left, _ = l.Fail(ctx, "10.0.0.1")
	assert.Equal(t, 2, left, "counting restarts after a lock")
}

func TestMemoryLimiter_WindowRestarts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(testPolicy)
	l.now = func() time.Time { return now }

	_, _ = l.Fail(ctx, "k")
	_, _ = l.Fail(ctx, "k")
	now = now.Add(2 * time.Minute)

	left, _ := l.Fail(ctx, "k")
	assert.Equal(t, 2, left)
}

func TestMemoryLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(testPolicy)
	for range 3 {
		_, _ = l.Fail(ctx, "k")
	}
	require.NoError(t, l.Reset(ctx, "k"))

	wait, _ := l.Locked(ctx, "k")
	assert.Zero(t, wait)
}

func TestMemoryLimiter_EvictsStaleKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(testPolicy)
	l.now = func() time.Time { return now }

	_, _ = l.Fail(ctx, "once-a")
	_, _ = l.Fail(ctx, "once-b")
	for range testPolicy.MaxAttempts {
		_, _ = l.Fail(ctx, "locked")
	}
	require.Equal(t, 3, l.Len())

	now = now.Add(testPolicy.Window + time.Second)
	_, _ = l.Fail(ctx, "fresh")
	assert.Equal(t, 2, l.Len(), "keys past their window are dropped, locked keys stay")

	wait, _ := l.Locked(ctx, "locked")
	assert.Positive(t, wait)

	now = now.Add(testPolicy.Lockout)
	wait, _ = l.Locked(ctx, "locked")
	assert.Zero(t, wait)
	assert.Equal(t, 1, l.Len(), "an expired lock is dropped on lookup")
}

func newRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, testPolicy), mr
}

func TestRedisLimiter_LocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)

	for want := 2; want >= 0; want-- {
		left, err := l.Fail(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, want, left)
	}

	wait, err := l.Locked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, wait)
	assert.False(t, mr.Exists(attemptsKey("10.0.0.1")))

	mr.FastForward(5 * time.Minute)
	wait, err = l.Locked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestRedisLimiter_AttemptsExpireWithWindow(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)

	_, err := l.Fail(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(attemptsKey("k")))

	mr.FastForward(time.Minute)
	left, err := l.Fail(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, left)
}

func TestRedisLimiter_RepairsCounterWithoutTTL(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)
	require.NoError(t, mr.Set(attemptsKey("k"), "1"))
	require.Zero(t, mr.TTL(attemptsKey("k")))

	left, err := l.Fail(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, left)
	assert.Equal(t, time.Minute, mr.TTL(attemptsKey("k")))
}

func TestRedisLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)
	for range 3 {
		_, _ = l.Fail(ctx, "k")
	}
	require.NoError(t, l.Reset(ctx, "k"))
	assert.False(t, mr.Exists(lockKey("k")))

	wait, err := l.Locked(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	l, mr := newRedisLimiter(t)
	mr.Close()

	_, err := l.Locked(context.Background(), "k")
	assert.Error(t, err)
}
