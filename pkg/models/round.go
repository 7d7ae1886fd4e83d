package models

import "time"

// RoundConfig parámetros de puntuación y tiempos de una ronda
type RoundConfig struct {
	Reward           int `json:"reward"`
	Penalty          int `json:"penalty,omitempty"`
	Bonus            int `json:"bonus,omitempty"`
	RewardPerElement int `json:"rewardPerElement,omitempty"`
	// MaxTries limita las cancelaciones por jugador en una pregunta (0 = sin límite).
	MaxTries    int `json:"maxTries,omitempty"`
	MaxMistakes int `json:"maxMistakes,omitempty"`

	ThinkingTimeSec  int `json:"thinkingTime,omitempty"`
	ChallengeTimeSec int `json:"challengeTime,omitempty"`

	// OrderSourceRound siembra el orden de turnos con la clasificación de otra ronda.
	OrderSourceRound string `json:"orderSourceRound,omitempty"`
	LowestFirst      bool   `json:"lowestFirst,omitempty"`
}

// Round una ronda de la partida; todas sus preguntas son del mismo arquetipo
type Round struct {
	ID                 string       `json:"id"`
	GameID             string       `json:"gameId"`
	Title              string       `json:"title"`
	Type               QuestionType `json:"type"`
	Questions          []string     `json:"questions"`
	CurrentQuestionIdx int          `json:"currentQuestionIdx"`
	Config             RoundConfig  `json:"config"`
	DateStart          *time.Time   `json:"dateStart,omitempty"`
	DateEnd            *time.Time   `json:"dateEnd,omitempty"`
}

func (r *Round) Started() bool { return r.DateStart != nil }

func (r *Round) Ended() bool { return r.DateEnd != nil }

// CurrentQuestion devuelve la pregunta en curso, o "" si no hay.
func (r *Round) CurrentQuestion() string {
	if r.CurrentQuestionIdx < 0 || r.CurrentQuestionIdx >= len(r.Questions) {
		return ""
	}
	return r.Questions[r.CurrentQuestionIdx]
}

// RoundScores libro de puntos de una ronda
type RoundScores struct {
	RoundID string         `json:"roundId"`
	Scores  map[string]int `json:"scores"`
	// Progress: equipo -> pregunta -> acumulado del equipo tras esa pregunta.
	Progress map[string]map[string]int `json:"scoresProgress"`
	Ranking  [][]string                `json:"ranking,omitempty"`
}

// GameScores libro global, alimentado al terminar cada ronda
type GameScores struct {
	Scores map[string]int `json:"scores"`
	// Progress: equipo -> ronda -> acumulado del equipo tras esa ronda.
	Progress map[string]map[string]int `json:"scoresProgress"`
	Ranking  [][]string                `json:"ranking,omitempty"`
}

func NewRoundScores(roundID string, teams []string) *RoundScores {
	rs := &RoundScores{
		RoundID:  roundID,
		Scores:   make(map[string]int, len(teams)),
		Progress: make(map[string]map[string]int, len(teams)),
	}
	for _, t := range teams {
		rs.Scores[t] = 0
		rs.Progress[t] = map[string]int{}
	}
	return rs
}

func NewGameScores(teams []string) *GameScores {
	gs := &GameScores{
		Scores:   make(map[string]int, len(teams)),
		Progress: make(map[string]map[string]int, len(teams)),
	}
	for _, t := range teams {
		gs.Scores[t] = 0
		gs.Progress[t] = map[string]int{}
	}
	return gs
}
