package models

import "time"

type TimerStatus string

const (
	TimerStatusReset   TimerStatus = "reset"
	TimerStatusRunning TimerStatus = "running"
	TimerStatusStopped TimerStatus = "stopped"
	TimerStatusExpired TimerStatus = "expired"
)

// Timer cuenta atrás de la partida. Epoch crece con cada arranque para que
// un vencimiento programado antes de un reinicio sea ignorado.
type Timer struct {
	Status      TimerStatus `json:"status"`
	QuestionID  string      `json:"questionId,omitempty"`
	DurationSec int         `json:"duration"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	Epoch       int64       `json:"epoch"`
}

// Deadline momento en que vence el temporizador en marcha.
func (t *Timer) Deadline() time.Time {
	if t.StartedAt == nil {
		return time.Time{}
	}
	return t.StartedAt.Add(time.Duration(t.DurationSec) * time.Second)
}

const maxSoundEvents = 50

// SoundEvent señal de sonido o efecto para las pantallas
type SoundEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

type SoundQueue struct {
	Events []SoundEvent `json:"events"`
}

// Push añade un evento y conserva solo los últimos.
func (q *SoundQueue) Push(ev SoundEvent) {
	q.Events = append(q.Events, ev)
	if over := len(q.Events) - maxSoundEvents; over > 0 {
		q.Events = append([]SoundEvent(nil), q.Events[over:]...)
	}
}
