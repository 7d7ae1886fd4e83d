package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	backend, err := NewRedisBackend(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return backend, mr
}

func TestRedisCommitAndRead(t *testing.T) {
	backend, mr := newTestRedis(t)
	ctx := context.Background()

	keys, err := backend.Attempt(ctx, func(tx Tx) error {
		if err := tx.Set("party:g1:game", counter{N: 3}); err != nil {
			return err
		}
		tx.Delete("party:g1:timer")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"party:g1:game", "party:g1:timer"}, keys)

	raw, err := mr.Get("party:g1:game")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":3}`, raw)

	var c counter
	require.NoError(t, backend.Get(ctx, "party:g1:game", &c))
	assert.Equal(t, 3, c.N)
	assert.ErrorIs(t, backend.Get(ctx, "party:g1:timer", &c), ErrNotFound)
}

func TestRedisWatchDetectsConcurrentWrite(t *testing.T) {
	backend, mr := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("k", `{"n":1}`))

	_, err := backend.Attempt(ctx, func(tx Tx) error {
		var c counter
		if err := tx.Get("k", &c); err != nil {
			return err
		}
		// Escritura externa sobre la clave vigilada.
		require.NoError(t, mr.Set("k", `{"n":50}`))
		return tx.Set("k", counter{N: c.N + 1})
	})
	assert.ErrorIs(t, err, ErrConflict)

	raw, err := mr.Get("k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":50}`, raw)
}

func TestRedisStaleDomainErrorBecomesConflict(t *testing.T) {
	backend, mr := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("k", `{"n":1}`))
	stale := errors.New("computed on old data")

	_, err := backend.Attempt(ctx, func(tx Tx) error {
		var c counter
		require.NoError(t, tx.Get("k", &c))
		require.NoError(t, mr.Set("k", `{"n":2}`))
		return stale
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = backend.Attempt(ctx, func(tx Tx) error {
		var c counter
		require.NoError(t, tx.Get("k", &c))
		return stale
	})
	assert.ErrorIs(t, err, stale)
}

func TestRedisExecutorConcurrentIncrements(t *testing.T) {
	backend, _ := newTestRedis(t)
	const workers = 10
	exec := NewExecutor(backend, workers+1)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- exec.Run(ctx, increment("c"))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var c counter
	require.NoError(t, exec.Read(ctx, "c", &c))
	assert.Equal(t, workers, c.N)
}

func TestRedisBackendFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backend := NewRedisBackendFromClient(client)
	defer backend.Close()

	require.NoError(t, backend.HealthCheck(context.Background()))
}
