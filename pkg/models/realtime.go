package models

import "time"

// Lifecycle fechas comunes al estado en vivo de cualquier pregunta
type Lifecycle struct {
	DateStart *time.Time `json:"dateStart,omitempty"`
	DateEnd   *time.Time `json:"dateEnd,omitempty"`
}

func (l *Lifecycle) Ended() bool { return l.DateEnd != nil }

func (l *Lifecycle) End(now time.Time) { l.DateEnd = &now }

// Cancellation respuesta rechazada de un jugador
type Cancellation struct {
	PlayerID  string    `json:"playerId"`
	TeamID    string    `json:"teamId"`
	ClueIdx   int       `json:"clueIdx"`
	Timestamp time.Time `json:"timestamp"`
}

// BuzzerQueue cola de jugadores que pulsaron, en orden de llegada
type BuzzerQueue struct {
	Buzzed   []string       `json:"buzzed"`
	Canceled []Cancellation `json:"canceled"`
}

// Head devuelve el primero de la cola, o "".
func (q *BuzzerQueue) Head() string {
	if len(q.Buzzed) == 0 {
		return ""
	}
	return q.Buzzed[0]
}

// Tries cuántas veces se ha cancelado al jugador
func (q *BuzzerQueue) Tries(playerID string) int {
	n := 0
	for _, c := range q.Canceled {
		if c.PlayerID == playerID {
			n++
		}
	}
	return n
}

// CanceledAtClue indica si el jugador fue cancelado en la pista dada.
func (q *BuzzerQueue) CanceledAtClue(playerID string, clueIdx int) bool {
	for _, c := range q.Canceled {
		if c.PlayerID == playerID && c.ClueIdx == clueIdx {
			return true
		}
	}
	return false
}

type Winner struct {
	PlayerID string `json:"playerId"`
	TeamID   string `json:"teamId"`
}

// BuzzerState estado en vivo de una pregunta de pulsador
type BuzzerState struct {
	Lifecycle
	BuzzerQueue
	QuestionID string  `json:"questionId"`
	ClueIdx    int     `json:"clueIdx"`
	Winner     *Winner `json:"winner,omitempty"`
}

// Reveal quién reveló un elemento; vacío si lo reveló el organizador
type Reveal struct {
	PlayerID  string    `json:"playerId,omitempty"`
	TeamID    string    `json:"teamId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RevealState estado en vivo de etiquetado/citas
type RevealState struct {
	Lifecycle
	BuzzerQueue
	QuestionID string         `json:"questionId"`
	Revealed   map[int]Reveal `json:"revealed"`
}

// MatchOutcome resultado de un intento de emparejamiento
type MatchOutcome string

const (
	MatchCorrect   MatchOutcome = "correct"
	MatchPartial   MatchOutcome = "partial"
	MatchIncorrect MatchOutcome = "incorrect"
)

// MatchRecord intento de un equipo; Match[c] es la fila elegida en la columna c
type MatchRecord struct {
	TeamID    string       `json:"teamId"`
	Match     []int        `json:"match,omitempty"`
	Outcome   MatchOutcome `json:"outcome"`
	Timestamp time.Time    `json:"timestamp"`
}

type MatchingState struct {
	Lifecycle
	QuestionID string         `json:"questionId"`
	Correct    []MatchRecord  `json:"correct"`
	Partial    []MatchRecord  `json:"partial"`
	Incorrect  []MatchRecord  `json:"incorrect"`
	Mistakes   map[string]int `json:"mistakes"`
	Eliminated []string       `json:"eliminated"`
}

// Matched indica si la fila ya fue emparejada correctamente.
func (s *MatchingState) Matched(row int) bool {
	for _, r := range s.Correct {
		if len(r.Match) > 0 && r.Match[0] == row {
			return true
		}
	}
	return false
}

// EnumPhase fase de una pregunta de enumeración
type EnumPhase string

const (
	EnumPhaseReflection EnumPhase = "reflection"
	EnumPhaseChallenge  EnumPhase = "challenge"
	EnumPhaseEnded      EnumPhase = "ended"
)

type Bet struct {
	TeamID    string    `json:"teamId"`
	PlayerID  string    `json:"playerId"`
	Bet       int       `json:"bet"`
	Timestamp time.Time `json:"timestamp"`
}

type Challenger struct {
	TeamID     string       `json:"teamId"`
	PlayerID   string       `json:"playerId"`
	Bet        int          `json:"bet"`
	CitedCount int          `json:"citedCount"`
	Cited      map[int]bool `json:"cited,omitempty"`
	Success    *bool        `json:"success,omitempty"`
}

type EnumState struct {
	Lifecycle
	QuestionID string      `json:"questionId"`
	Phase      EnumPhase   `json:"phase"`
	Bets       []Bet       `json:"bets"`
	Challenger *Challenger `json:"challenger,omitempty"`
}

type Selection struct {
	Idx       int       `json:"idx"`
	PlayerID  string    `json:"playerId,omitempty"`
	TeamID    string    `json:"teamId"`
	Timestamp time.Time `json:"timestamp"`
}

type OddOneOutState struct {
	Lifecycle
	QuestionID string      `json:"questionId"`
	Selected   []Selection `json:"selected"`
	LoserTeam  string      `json:"loserTeam,omitempty"`
}

// IsSelected indica si la propuesta ya fue elegida.
func (s *OddOneOutState) IsSelected(idx int) bool {
	for _, sel := range s.Selected {
		if sel.Idx == idx {
			return true
		}
	}
	return false
}

// FinalePhase fase dentro de un tema de la final
type FinalePhase string

const (
	FinalePhaseIdle       FinalePhase = "idle"
	FinalePhaseSection    FinalePhase = "section_active"
	FinalePhaseSectionEnd FinalePhase = "section_end"
	FinalePhaseThemeEnd   FinalePhase = "theme_end"
)

type FinaleOutcome struct {
	SectionIdx  int       `json:"sectionIdx"`
	QuestionIdx int       `json:"questionIdx"`
	Correct     bool      `json:"correct"`
	Timestamp   time.Time `json:"timestamp"`
}

// FinaleState estado en vivo de un tema de la final
type FinaleState struct {
	Lifecycle
	QuestionID  string          `json:"questionId"`
	TeamID      string          `json:"teamId,omitempty"`
	Phase       FinalePhase     `json:"phase"`
	SectionIdx  int             `json:"sectionIdx"`
	QuestionIdx int             `json:"questionIdx"`
	Outcomes    []FinaleOutcome `json:"outcomes"`
	Score       int             `json:"score"`
}
