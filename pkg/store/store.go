package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound se devuelve cuando el documento no existe
	ErrNotFound = errors.New("document not found")
	// ErrConflict indica que otra unidad modificó un documento leído
	ErrConflict = errors.New("transaction conflict")
	// ErrRetryExhausted se devuelve cuando se agotan los reintentos
	ErrRetryExhausted = errors.New("transaction retries exhausted")
)

// Tx es la vista transaccional que recibe una unidad de trabajo.
// Las lecturas ven las escrituras pendientes de la misma unidad; las
// escrituras se aplican todas juntas al confirmar o no se aplican.
type Tx interface {
	Get(key string, v any) error
	Set(key string, v any) error
	Delete(key string)
}

// Backend ejecuta un único intento optimista de una unidad de trabajo.
type Backend interface {
	// Attempt devuelve las claves escritas, o ErrConflict si algún
	// documento leído cambió antes de confirmar.
	Attempt(ctx context.Context, fn func(Tx) error) ([]string, error)
	// Get lee un documento fuera de cualquier unidad.
	Get(ctx context.Context, key string, v any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// Load lee y decodifica un documento dentro de una unidad.
func Load[T any](tx Tx, key string) (*T, error) {
	var v T
	if err := tx.Get(key, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// writeSet acumula las escrituras de un intento en orden de llegada.
type writeSet struct {
	order  []string
	values map[string][]byte
}

func newWriteSet() *writeSet {
	return &writeSet{values: make(map[string][]byte)}
}

// set guarda el JSON ya serializado para que mutaciones posteriores del
// valor no alteren lo que se confirma.
func (w *writeSet) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error serializing %s: %w", key, err)
	}
	w.put(key, data)
	return nil
}

func (w *writeSet) delete(key string) {
	w.put(key, nil)
}

func (w *writeSet) put(key string, data []byte) {
	if _, ok := w.values[key]; !ok {
		w.order = append(w.order, key)
	}
	w.values[key] = data
}

// lookup devuelve (datos, encontrado-en-el-buffer). Un borrado pendiente
// se reporta como encontrado con datos nil.
func (w *writeSet) lookup(key string) ([]byte, bool) {
	data, ok := w.values[key]
	return data, ok
}

func (w *writeSet) empty() bool {
	return len(w.order) == 0
}

func (w *writeSet) keys() []string {
	return append([]string(nil), w.order...)
}

func decode(key string, data []byte, v any) error {
	if data == nil {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error parsing %s: %w", key, err)
	}
	return nil
}
