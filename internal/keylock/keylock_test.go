package keylock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/habiliai/agentmemory/internal/keylock"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseMutualExclusion(t *testing.T, locker keylock.Locker) {
	ctx := t.Context()
	key := keylock.Key("user-1", "personal", "name")

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, key)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := inside.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
}

func exerciseDistinctKeys(t *testing.T, locker keylock.Locker) {
	ctx := t.Context()

	unlockA, err := locker.Lock(ctx, keylock.Key("user-a", "personal", "name"))
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := locker.Lock(ctx, keylock.Key("user-b", "personal", "name"))
	require.NoError(t, err, "a different key must not wait for user-a")
	unlockB()
}

func exerciseCancel(t *testing.T, locker keylock.Locker) {
	key := keylock.Key("user-1", "work", "employer")
	unlock, err := locker.Lock(t.Context(), key)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocal(t *testing.T) {
	t.Run("mutual exclusion", func(t *testing.T) { exerciseMutualExclusion(t, keylock.NewLocal()) })
	t.Run("distinct keys", func(t *testing.T) { exerciseDistinctKeys(t, keylock.NewLocal()) })
	t.Run("cancel", func(t *testing.T) { exerciseCancel(t, keylock.NewLocal()) })

	t.Run("entries are released", func(t *testing.T) {
		locker := keylock.NewLocal()
		unlock, err := locker.Lock(t.Context(), "k")
		require.NoError(t, err)
		assert.Equal(t, 1, locker.Len())
		unlock()
		unlock()
		assert.Equal(t, 0, locker.Len())
	})
}

func TestRedis(t *testing.T) {
	newLocker := func(t *testing.T) keylock.Locker {
		s := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return keylock.NewRedis(client, 5*time.Second, 5*time.Millisecond, mylog.Discard())
	}

	t.Run("mutual exclusion", func(t *testing.T) { exerciseMutualExclusion(t, newLocker(t)) })
	t.Run("distinct keys", func(t *testing.T) { exerciseDistinctKeys(t, newLocker(t)) })
	t.Run("cancel", func(t *testing.T) { exerciseCancel(t, newLocker(t)) })

	t.Run("release only own token", func(t *testing.T) {
		s := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		defer client.Close()
		locker := keylock.NewRedis(client, 5*time.Second, 5*time.Millisecond, mylog.Discard())

		unlock, err := locker.Lock(t.Context(), "k")
		require.NoError(t, err)

		// simulate expiry and takeover by another holder
		s.Set("agentmemory:lock:k", "someone-else")
		unlock()

		v, err := s.Get("agentmemory:lock:k")
		require.NoError(t, err)
		assert.Equal(t, "someone-else", v)
	})

	t.Run("lease is renewed while held", func(t *testing.T) {
		s := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		defer client.Close()
		ttl := 300 * time.Millisecond
		locker := keylock.NewRedis(client, ttl, 5*time.Millisecond, mylog.Discard())

		unlock, err := locker.Lock(t.Context(), "k")
		require.NoError(t, err)

		// a slow holder: most of the lease is gone
		s.FastForward(250 * time.Millisecond)
		assert.Eventually(t, func() bool {
			return s.TTL("agentmemory:lock:k") > 100*time.Millisecond
		}, 2*time.Second, 10*time.Millisecond, "lease was not extended")

		unlock()
		assert.False(t, s.Exists("agentmemory:lock:k"))

		// a fresh holder gets the key right away
		ctx, cancel := context.WithTimeout(t.Context(), time.Second)
		defer cancel()
		unlock, err = locker.Lock(ctx, "k")
		require.NoError(t, err)
		unlock()
	})
}
