package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// DefaultMaxRetries es el número de intentos por defecto de una unidad.
const DefaultMaxRetries = 8

const (
	backoffBase = 2 * time.Millisecond
	backoffMax  = 100 * time.Millisecond
)

// CommitFunc recibe las claves escritas por una unidad confirmada.
type CommitFunc func(ctx context.Context, keys []string)

// Executor ejecuta unidades de trabajo con reintento ante conflictos.
type Executor struct {
	backend    Backend
	maxRetries int

	mu        sync.RWMutex
	observers []CommitFunc
}

// NewExecutor crea un ejecutor sobre el backend dado
func NewExecutor(backend Backend, maxRetries int) *Executor {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Executor{
		backend:    backend,
		maxRetries: maxRetries,
	}
}

// Observe registra una función que se llama tras cada confirmación con escrituras.
func (e *Executor) Observe(fn CommitFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Run ejecuta fn como unidad atómica. fn puede ejecutarse varias veces:
// no debe producir efectos fuera de tx.
func (e *Executor) Run(ctx context.Context, fn func(Tx) error) error {
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		keys, err := e.backend.Attempt(ctx, fn)
		if err == nil {
			if len(keys) > 0 {
				e.notify(ctx, keys)
			}
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		slog.Debug("conflicto en transacción, reintentando", "attempt", attempt, "max", e.maxRetries)
		if attempt == e.maxRetries {
			break
		}
		if err := sleep(ctx, backoff(attempt)); err != nil {
			return err
		}
	}

	slog.Warn("⚠️ reintentos agotados", "max", e.maxRetries)
	return fmt.Errorf("%w after %d attempts", ErrRetryExhausted, e.maxRetries)
}

// backoff espera exponencial con jitter completo, acotada a backoffMax.
func backoff(attempt int) time.Duration {
	d := backoffBase << min(attempt-1, 16)
	if d > backoffMax {
		d = backoffMax
	}
	return time.Duration(rand.Int63n(int64(d))) + 1
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Read lee un documento fuera de cualquier unidad (consultas de solo lectura).
func (e *Executor) Read(ctx context.Context, key string, v any) error {
	return e.backend.Get(ctx, key, v)
}

func (e *Executor) HealthCheck(ctx context.Context) error {
	return e.backend.HealthCheck(ctx)
}

func (e *Executor) notify(ctx context.Context, keys []string) {
	e.mu.RLock()
	observers := append([]CommitFunc(nil), e.observers...)
	e.mu.RUnlock()

	for _, fn := range observers {
		fn(ctx, keys)
	}
}
