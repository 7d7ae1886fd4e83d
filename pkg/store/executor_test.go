package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	N int `json:"n"`
}

func increment(key string) func(Tx) error {
	return func(tx Tx) error {
		var c counter
		if err := tx.Get(key, &c); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		c.N++
		return tx.Set(key, c)
	}
}

func TestExecutorRetriesForcedConflicts(t *testing.T) {
	backend := NewMemoryBackend()
	exec := NewExecutor(backend, 4)
	ctx := context.Background()

	backend.ForceConflicts(3)
	attempts := 0
	err := exec.Run(ctx, func(tx Tx) error {
		attempts++
		return increment("c")(tx)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)

	var c counter
	require.NoError(t, exec.Read(ctx, "c", &c))
	assert.Equal(t, 1, c.N, "only the successful attempt is applied")
}

func TestExecutorRetryExhausted(t *testing.T) {
	backend := NewMemoryBackend()
	exec := NewExecutor(backend, 3)
	ctx := context.Background()

	backend.ForceConflicts(3)
	err := exec.Run(ctx, increment("c"))
	require.ErrorIs(t, err, ErrRetryExhausted)

	var c counter
	assert.ErrorIs(t, exec.Read(ctx, "c", &c), ErrNotFound)
}

func TestExecutorDoesNotRetryDomainErrors(t *testing.T) {
	exec := NewExecutor(NewMemoryBackend(), 5)
	boom := errors.New("boom")

	attempts := 0
	err := exec.Run(context.Background(), func(tx Tx) error {
		attempts++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestExecutorNotifiesObservers(t *testing.T) {
	exec := NewExecutor(NewMemoryBackend(), 0)
	ctx := context.Background()

	var got [][]string
	exec.Observe(func(_ context.Context, keys []string) {
		got = append(got, keys)
	})

	require.NoError(t, exec.Run(ctx, func(tx Tx) error {
		if err := tx.Set("b", counter{N: 1}); err != nil {
			return err
		}
		return tx.Set("a", counter{N: 2})
	}))
	// Una unidad sin escrituras no notifica.
	require.NoError(t, exec.Run(ctx, func(tx Tx) error {
		var c counter
		return tx.Get("a", &c)
	}))

	require.Len(t, got, 1)
	assert.Equal(t, []string{"b", "a"}, got[0])
}

func TestExecutorConcurrentIncrements(t *testing.T) {
	const workers = 20
	exec := NewExecutor(NewMemoryBackend(), workers+1)
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

// Con el presupuesto por defecto, la contención real no agota los reintentos.
func TestExecutorConcurrentIncrementsAtDefaultRetries(t *testing.T) {
	const workers = 32
	exec := NewExecutor(NewMemoryBackend(), 0)
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

func TestBackoffIsBoundedAndPositive(t *testing.T) {
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoff(attempt)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, backoffMax)
	}
}

func TestExecutorHonoursCanceledContext(t *testing.T) {
	exec := NewExecutor(NewMemoryBackend(), 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Run(ctx, increment("c"))
	assert.ErrorIs(t, err, context.Canceled)
}
