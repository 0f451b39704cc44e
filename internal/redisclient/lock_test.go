package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (CancelLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCancelLocker(client, 30*time.Second), mr
}

func TestWithCancelLockRunsFn(t *testing.T) {
	locker, _ := newTestLocker(t)

	ran := false
	err := locker.WithCancelLock(context.Background(), "D123", func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestWithCancelLockPropagatesFnError(t *testing.T) {
	locker, _ := newTestLocker(t)

	boom := errors.New("remote exploded")
	err := locker.WithCancelLock(context.Background(), "D123", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestWithCancelLockContention(t *testing.T) {
	locker, mr := newTestLocker(t)

	// Another request holds the lock for this appointment.
	require.NoError(t, mr.Set("lock:cancel:D123", "someone-else"))

	err := locker.WithCancelLock(context.Background(), "D123", func(ctx context.Context) error {
		t.Fatal("fn must not run while the lock is held")
		return nil
	})
	assert.ErrorIs(t, err, ErrCancelInProgress)

	// A different appointment is unaffected.
	err = locker.WithCancelLock(context.Background(), "D456", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestWithCancelLockReleasesOnReturn(t *testing.T) {
	locker, mr := newTestLocker(t)

	require.NoError(t, locker.WithCancelLock(context.Background(), "D123", func(ctx context.Context) error { return nil }))

	assert.False(t, mr.Exists("lock:cancel:D123"))
	// Re-acquire works immediately.
	require.NoError(t, locker.WithCancelLock(context.Background(), "D123", func(ctx context.Context) error { return nil }))
}

func TestWithCancelLockReleaseIgnoresForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)

	err := locker.WithCancelLock(context.Background(), "D123", func(ctx context.Context) error {
		// The lock expires mid-run and someone else takes it.
		mr.Del("lock:cancel:D123")
		require.NoError(t, mr.Set("lock:cancel:D123", "someone-else"))
		return nil
	})
	require.NoError(t, err)

	// The foreign holder's token survives our release.
	got, err := mr.Get("lock:cancel:D123")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
