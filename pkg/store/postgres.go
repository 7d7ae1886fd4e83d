package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	key     TEXT PRIMARY KEY,
	version BIGINT NOT NULL,
	deleted BOOLEAN NOT NULL DEFAULT FALSE,
	body    JSONB
)`

// PostgresBackend guarda documentos en una tabla versionada. Al confirmar,
// bloquea las filas tocadas con FOR UPDATE y compara las versiones leídas.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend abre el pool y crea la tabla si no existe
func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("error creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, documentsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error creating documents table: %w", err)
	}

	slog.Info("✅ Conexión exitosa a Postgres")
	return &PostgresBackend{pool: pool}, nil
}

type postgresTx struct {
	ctx    context.Context
	pool   *pgxpool.Pool
	reads  map[string]int64
	writes *writeSet
}

func (t *postgresTx) Get(key string, v any) error {
	if data, ok := t.writes.lookup(key); ok {
		return decode(key, data, v)
	}

	var (
		version int64
		deleted bool
		body    []byte
	)
	err := t.pool.QueryRow(t.ctx,
		`SELECT version, deleted, body FROM documents WHERE key = $1`, key,
	).Scan(&version, &deleted, &body)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("error getting %s: %w", key, err)
	}

	if _, seen := t.reads[key]; !seen {
		t.reads[key] = version
	}
	if deleted {
		body = nil
	}
	return decode(key, body, v)
}

func (t *postgresTx) Set(key string, v any) error {
	return t.writes.set(key, v)
}

func (t *postgresTx) Delete(key string) {
	t.writes.delete(key)
}

func (p *PostgresBackend) Attempt(ctx context.Context, fn func(Tx) error) ([]string, error) {
	tx := &postgresTx{
		ctx:    ctx,
		pool:   p.pool,
		reads:  make(map[string]int64),
		writes: newWriteSet(),
	}

	if fnErr := fn(tx); fnErr != nil {
		valid, err := p.readsValid(ctx, tx.reads)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, ErrConflict
		}
		return nil, fnErr
	}

	if tx.writes.empty() {
		return nil, nil
	}

	err := pgx.BeginFunc(ctx, p.pool, func(dbtx pgx.Tx) error {
		return p.commit(ctx, dbtx, tx)
	})
	if err != nil {
		if errors.Is(err, ErrConflict) || isSerializationFailure(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return tx.writes.keys(), nil
}

func (p *PostgresBackend) commit(ctx context.Context, dbtx pgx.Tx, tx *postgresTx) error {
	// Bloquear en orden de clave evita interbloqueos entre unidades.
	keys := make([]string, 0, len(tx.reads)+len(tx.writes.order))
	seen := make(map[string]bool)
	for key := range tx.reads {
		seen[key] = true
		keys = append(keys, key)
	}
	for _, key := range tx.writes.order {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	current, err := lockVersions(ctx, dbtx, keys)
	if err != nil {
		return err
	}
	for key, version := range tx.reads {
		if current[key] != version {
			return ErrConflict
		}
	}

	for _, key := range tx.writes.order {
		data := tx.writes.values[key]
		_, exists := current[key]

		switch {
		case !exists:
			// Nadie tenía la fila bloqueada: otra unidad puede insertarla a la vez.
			tag, err := dbtx.Exec(ctx,
				`INSERT INTO documents (key, version, deleted, body) VALUES ($1, 1, $2, $3)
				 ON CONFLICT (key) DO NOTHING`,
				key, data == nil, data)
			if err != nil {
				return fmt.Errorf("error inserting %s: %w", key, err)
			}
			if tag.RowsAffected() != 1 {
				return ErrConflict
			}
		default:
			_, err := dbtx.Exec(ctx,
				`UPDATE documents SET version = version + 1, deleted = $2, body = $3 WHERE key = $1`,
				key, data == nil, data)
			if err != nil {
				return fmt.Errorf("error updating %s: %w", key, err)
			}
		}
	}
	return nil
}

func lockVersions(ctx context.Context, dbtx pgx.Tx, keys []string) (map[string]int64, error) {
	rows, err := dbtx.Query(ctx,
		`SELECT key, version FROM documents WHERE key = ANY($1) ORDER BY key FOR UPDATE`, keys)
	if err != nil {
		return nil, fmt.Errorf("error locking documents: %w", err)
	}
	defer rows.Close()

	current := make(map[string]int64, len(keys))
	for rows.Next() {
		var (
			key     string
			version int64
		)
		if err := rows.Scan(&key, &version); err != nil {
			return nil, fmt.Errorf("error scanning document version: %w", err)
		}
		current[key] = version
	}
	return current, rows.Err()
}

func (p *PostgresBackend) readsValid(ctx context.Context, reads map[string]int64) (bool, error) {
	if len(reads) == 0 {
		return true, nil
	}
	keys := make([]string, 0, len(reads))
	for key := range reads {
		keys = append(keys, key)
	}

	rows, err := p.pool.Query(ctx, `SELECT key, version FROM documents WHERE key = ANY($1)`, keys)
	if err != nil {
		return false, fmt.Errorf("error checking document versions: %w", err)
	}
	defer rows.Close()

	current := make(map[string]int64, len(keys))
	for rows.Next() {
		var (
			key     string
			version int64
		)
		if err := rows.Scan(&key, &version); err != nil {
			return false, fmt.Errorf("error scanning document version: %w", err)
		}
		current[key] = version
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	for key, version := range reads {
		if current[key] != version {
			return false, nil
		}
	}
	return true, nil
}

func (p *PostgresBackend) Get(ctx context.Context, key string, v any) error {
	var body []byte
	err := p.pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE key = $1 AND NOT deleted`, key,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("error getting %s: %w", key, err)
	}
	return decode(key, body, v)
}

func (p *PostgresBackend) HealthCheck(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}

// isSerializationFailure detecta serialization_failure y deadlock_detected.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
