package booking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGuard(t *testing.T) *RedisGuard {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisGuard(client)
}

func TestRedisGuardFirstWriterWins(t *testing.T) {
	guard := newRedisGuard(t)
	ctx := context.Background()
	start := time.Date(2025, time.June, 11, 14, 0, 0, 0, time.UTC)

	ok, err := guard.Acquire(ctx, "sess-1", start)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Acquire(ctx, "sess-1", start)
	require.NoError(t, err)
	assert.False(t, ok, "resubmission of the same (session, slot) is rejected")

	// A different session or slot is an independent key.
	ok, err = guard.Acquire(ctx, "sess-2", start)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = guard.Acquire(ctx, "sess-1", start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuardReleaseAllowsRetry(t *testing.T) {
	guard := newRedisGuard(t)
	ctx := context.Background()
	start := time.Date(2025, time.June, 11, 14, 0, 0, 0, time.UTC)

	ok, err := guard.Acquire(ctx, "sess-1", start)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, guard.Release(ctx, "sess-1", start))

	ok, err = guard.Acquire(ctx, "sess-1", start)
	require.NoError(t, err)
	assert.True(t, ok, "release frees the slot for a retry")
}

func TestMemoryGuardMatchesRedisSemantics(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()
	start := time.Date(2025, time.June, 11, 14, 0, 0, 0, time.UTC)

	ok, _ := guard.Acquire(ctx, "sess-1", start)
	assert.True(t, ok)
	ok, _ = guard.Acquire(ctx, "sess-1", start)
	assert.False(t, ok)

	require.NoError(t, guard.Release(ctx, "sess-1", start))
	ok, _ = guard.Acquire(ctx, "sess-1", start)
	assert.True(t, ok)
}
