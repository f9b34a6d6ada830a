package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLocker(rdb, "test:"), mr
}

func TestAcquire(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "reclaim", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "test:reclaim", lease.Key())
	assert.True(t, mr.Exists("test:reclaim"))

	_, err = locker.Acquire(ctx, "reclaim", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	_, err = locker.Acquire(ctx, "other", time.Minute)
	assert.NoError(t, err, "names are independent")
}

func TestAcquire_RejectsZeroTTL(t *testing.T) {
	locker, _ := setupLocker(t)
	_, err := locker.Acquire(context.Background(), "reclaim", 0)
	assert.Error(t, err)
}

func TestAcquire_AfterExpiry(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "reclaim", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = locker.Acquire(ctx, "reclaim", time.Second)
	assert.NoError(t, err)
}

func TestRelease(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "reclaim", time.Minute)
	require.NoError(t, err)

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("test:reclaim"))

	assert.ErrorIs(t, lease.Release(ctx), ErrLeaseLost)
}

func TestRelease_DoesNotDropNewOwner(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "reclaim", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := locker.Acquire(ctx, "reclaim", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, stale.Release(ctx), ErrLeaseLost)
	assert.ErrorIs(t, stale.Refresh(ctx), ErrLeaseLost)
	assert.True(t, mr.Exists("test:reclaim"))
	require.NoError(t, fresh.Release(ctx))
}

func TestRefresh(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "reclaim", 10*time.Second)
	require.NoError(t, err)

	mr.FastForward(8 * time.Second)
	require.NoError(t, lease.Refresh(ctx))
	mr.FastForward(8 * time.Second)

	assert.True(t, mr.Exists("test:reclaim"))
}
