package store

import (
	"context"
	"sync"
)

type memDoc struct {
	data    []byte
	version uint64
}

// MemoryBackend guarda documentos versionados en memoria. Útil para
// desarrollo local y pruebas; no persiste nada.
type MemoryBackend struct {
	mu     sync.Mutex
	docs   map[string]memDoc
	forced int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string]memDoc)}
}

// ForceConflicts hace que las próximas n confirmaciones fallen con ErrConflict.
func (m *MemoryBackend) ForceConflicts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced = n
}

type memoryTx struct {
	backend *MemoryBackend
	reads   map[string]uint64
	writes  *writeSet
}

func (t *memoryTx) Get(key string, v any) error {
	if data, ok := t.writes.lookup(key); ok {
		return decode(key, data, v)
	}

	t.backend.mu.Lock()
	doc := t.backend.docs[key]
	t.backend.mu.Unlock()

	if _, seen := t.reads[key]; !seen {
		t.reads[key] = doc.version
	}
	return decode(key, doc.data, v)
}

func (t *memoryTx) Set(key string, v any) error {
	return t.writes.set(key, v)
}

func (t *memoryTx) Delete(key string) {
	t.writes.delete(key)
}

func (m *MemoryBackend) Attempt(ctx context.Context, fn func(Tx) error) ([]string, error) {
	tx := &memoryTx{
		backend: m,
		reads:   make(map[string]uint64),
		writes:  newWriteSet(),
	}

	if err := fn(tx); err != nil {
		// Un error calculado sobre lecturas obsoletas se reintenta.
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.validLocked(tx.reads) {
			return nil, ErrConflict
		}
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.forced > 0 {
		m.forced--
		return nil, ErrConflict
	}
	if !m.validLocked(tx.reads) {
		return nil, ErrConflict
	}

	// Los borrados dejan una lápida con versión para que un documento
	// recreado no parezca intacto.
	for _, key := range tx.writes.order {
		doc := m.docs[key]
		m.docs[key] = memDoc{data: tx.writes.values[key], version: doc.version + 1}
	}
	return tx.writes.keys(), nil
}

func (m *MemoryBackend) validLocked(reads map[string]uint64) bool {
	for key, version := range reads {
		if m.docs[key].version != version {
			return false
		}
	}
	return true
}

func (m *MemoryBackend) Get(ctx context.Context, key string, v any) error {
	m.mu.Lock()
	doc := m.docs[key]
	m.mu.Unlock()
	return decode(key, doc.data, v)
}

func (m *MemoryBackend) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
