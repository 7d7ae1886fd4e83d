package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBackend guarda cada documento como JSON en una clave de Redis.
// Las unidades usan WATCH sobre cada clave leída y confirman con MULTI/EXEC.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend crea una nueva conexión y verifica que Redis responda
func NewRedisBackend(ctx context.Context, addr, password string, db int) (*RedisBackend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verificar conexión
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("error connecting to redis at %s: %w", addr, err)
	}

	slog.Info("✅ Conexión exitosa a Redis", "addr", addr, "db", db)
	return NewRedisBackendFromClient(rdb), nil
}

// NewRedisBackendFromClient envuelve un cliente ya configurado.
func NewRedisBackendFromClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

type redisTx struct {
	ctx    context.Context
	tx     *redis.Tx
	writes *writeSet
}

func (t *redisTx) Get(key string, v any) error {
	if data, ok := t.writes.lookup(key); ok {
		return decode(key, data, v)
	}

	if err := t.tx.Watch(t.ctx, key).Err(); err != nil {
		return fmt.Errorf("error watching %s: %w", key, err)
	}

	data, err := t.tx.Get(t.ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("error getting %s: %w", key, err)
	}
	return decode(key, data, v)
}

func (t *redisTx) Set(key string, v any) error {
	return t.writes.set(key, v)
}

func (t *redisTx) Delete(key string) {
	t.writes.delete(key)
}

func (r *RedisBackend) Attempt(ctx context.Context, fn func(Tx) error) ([]string, error) {
	var written []string

	err := r.client.Watch(ctx, func(rtx *redis.Tx) error {
		tx := &redisTx{ctx: ctx, tx: rtx, writes: newWriteSet()}

		if fnErr := fn(tx); fnErr != nil {
			// EXEC vacío: si falla, el error se calculó sobre lecturas obsoletas.
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Ping(ctx)
				return nil
			})
			if err != nil {
				return err
			}
			return fnErr
		}

		if tx.writes.empty() {
			return nil
		}

		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, key := range tx.writes.order {
				data := tx.writes.values[key]
				if data == nil {
					pipe.Del(ctx, key)
					continue
				}
				pipe.Set(ctx, key, data, 0)
			}
			return nil
		})
		if err != nil {
			return err
		}

		written = tx.writes.keys()
		return nil
	})

	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return written, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string, v any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("error getting %s: %w", key, err)
	}
	return decode(key, data, v)
}

// HealthCheck verifica que Redis esté funcionando
func (r *RedisBackend) HealthCheck(ctx context.Context) error {
	if _, err := r.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close cierra la conexión con Redis
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
