package models

import (
	"slices"
	"time"
)

// GameStatus estado global de la partida
type GameStatus string

const (
	GameStatusEdit           GameStatus = "edit"
	GameStatusStart          GameStatus = "game_start"
	GameStatusRoundStart     GameStatus = "round_start"
	GameStatusQuestionActive GameStatus = "question_active"
	GameStatusQuestionEnd    GameStatus = "question_end"
	GameStatusRoundEnd       GameStatus = "round_end"
	GameStatusGameEnd        GameStatus = "game_end"
)

var gameTransitions = map[GameStatus][]GameStatus{
	GameStatusEdit:           {GameStatusStart},
	GameStatusStart:          {GameStatusRoundStart, GameStatusGameEnd},
	GameStatusRoundStart:     {GameStatusQuestionActive, GameStatusRoundEnd},
	GameStatusQuestionActive: {GameStatusQuestionActive, GameStatusQuestionEnd},
	GameStatusQuestionEnd:    {GameStatusQuestionActive, GameStatusRoundEnd},
	GameStatusRoundEnd:       {GameStatusRoundStart, GameStatusGameEnd},
	GameStatusGameEnd:        {},
}

// CanTransition indica si la partida puede pasar de s a next.
func (s GameStatus) CanTransition(next GameStatus) bool {
	return slices.Contains(gameTransitions[s], next)
}

// Game documento raíz de una partida
type Game struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Status          GameStatus `json:"status"`
	Rounds          []string   `json:"rounds"`
	CurrentRound    string     `json:"currentRound,omitempty"`
	CurrentQuestion string     `json:"currentQuestion,omitempty"`
	Teams           []string   `json:"teams"`
	Players         []string   `json:"players"`
	CreatedAt       time.Time  `json:"createdAt"`
	DateStart       *time.Time `json:"dateStart,omitempty"`
	DateEnd         *time.Time `json:"dateEnd,omitempty"`
}

// RoundIndex devuelve la posición de la ronda en el orden de la partida, o -1.
func (g *Game) RoundIndex(roundID string) int {
	return slices.Index(g.Rounds, roundID)
}

// Team equipo de jugadores
type Team struct {
	ID      string   `json:"id"`
	GameID  string   `json:"gameId"`
	Name    string   `json:"name"`
	Color   string   `json:"color,omitempty"`
	Players []string `json:"players"`
}

// PlayerStatus estado visible de un jugador durante una pregunta
type PlayerStatus string

const (
	PlayerStatusIdle    PlayerStatus = "idle"
	PlayerStatusFocus   PlayerStatus = "focus"
	PlayerStatusCorrect PlayerStatus = "correct"
	PlayerStatusWrong   PlayerStatus = "wrong"
)

// Player jugador de un equipo
type Player struct {
	ID     string       `json:"id"`
	GameID string       `json:"gameId"`
	TeamID string       `json:"teamId"`
	Name   string       `json:"name"`
	Status PlayerStatus `json:"status"`
}
