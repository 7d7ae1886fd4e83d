package services

import (
	"errors"
	"fmt"

	"github.com/jmettler27/Pop-sub001/pkg/store"
)

var (
	// ErrValidation petición mal formada; se rechaza sin tocar el estado
	ErrValidation = errors.New("validation failed")
	// ErrStaleState la acción ya no aplica al estado actual (pregunta terminada, fase equivocada...)
	ErrStaleState = errors.New("stale state")

	ErrNotFound       = store.ErrNotFound
	ErrRetryExhausted = store.ErrRetryExhausted
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func stalef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStaleState, fmt.Sprintf(format, args...))
}

// requireIDs rechaza identificadores vacíos antes de abrir una unidad.
func requireIDs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return validationf("%s is required", pairs[i])
		}
	}
	return nil
}
