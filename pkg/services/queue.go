package services

import (
	"slices"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

// Operaciones de la cola de pulsador compartidas por las preguntas de
// pulsador y de revelación. Nunca guardan el estado: lo hace quien llama.

// enqueue añade al jugador al final; devuelve true si queda primero.
// Pulsar dos veces no tiene efecto.
func enqueue(q *models.BuzzerQueue, playerID string) (added, head bool) {
	if slices.Contains(q.Buzzed, playerID) {
		return false, false
	}
	q.Buzzed = append(q.Buzzed, playerID)
	return true, len(q.Buzzed) == 1
}

// dequeue quita al jugador; devuelve si estaba en la cola y si era el primero.
func dequeue(q *models.BuzzerQueue, playerID string) (removed, wasHead bool) {
	idx := slices.Index(q.Buzzed, playerID)
	if idx < 0 {
		return false, false
	}
	q.Buzzed = slices.Delete(q.Buzzed, idx, idx+1)
	return true, idx == 0
}

// cancelHead rechaza la respuesta del primero de la cola.
func (u *unit) cancelHead(q *models.BuzzerQueue, playerID string, clueIdx int) error {
	if q.Head() != playerID {
		return stalef("player %s is not first in the buzzer queue", playerID)
	}
	p, err := u.player(playerID)
	if err != nil {
		return err
	}
	q.Buzzed = q.Buzzed[1:]
	q.Canceled = append(q.Canceled, models.Cancellation{
		PlayerID:  playerID,
		TeamID:    p.TeamID,
		ClueIdx:   clueIdx,
		Timestamp: u.now,
	})
	if err := u.setPlayerStatus(playerID, models.PlayerStatusWrong); err != nil {
		return err
	}
	return u.sound("wrong_answer")
}

// focusHead da el foco al primero de la cola y arranca su cuenta atrás, o
// deja el temporizador en reset si la cola está vacía.
func (u *unit) focusHead(q *models.BuzzerQueue, questionID string, seconds int) error {
	head := q.Head()
	if head == "" {
		return u.resetTimer(questionID)
	}
	if err := u.setPlayerStatus(head, models.PlayerStatusFocus); err != nil {
		return err
	}
	return u.startTimer(questionID, seconds)
}

// clearQueue vacía la cola; los que esperaban vuelven a idle.
func (u *unit) clearQueue(q *models.BuzzerQueue) error {
	for _, playerID := range q.Buzzed {
		if err := u.setPlayerStatus(playerID, models.PlayerStatusIdle); err != nil {
			return err
		}
	}
	q.Buzzed = []string{}
	return nil
}

// triesExhausted indica si ningún jugador de la partida puede volver a pulsar.
func triesExhausted(q *models.BuzzerQueue, players []string, maxTries int) bool {
	if maxTries <= 0 || len(players) == 0 {
		return false
	}
	for _, p := range players {
		if q.Tries(p) < maxTries {
			return false
		}
	}
	return true
}
