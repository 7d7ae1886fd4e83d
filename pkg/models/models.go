package models

import "encoding/json"

// APIResponse estructura estándar para respuestas de API
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// GameSnapshot vista de solo lectura de una partida para las pantallas
type GameSnapshot struct {
	Game        *Game           `json:"game"`
	Teams       []Team          `json:"teams"`
	Players     []Player        `json:"players"`
	Rounds      []Round         `json:"rounds"`
	Chooser     *Chooser        `json:"chooser,omitempty"`
	Timer       *Timer          `json:"timer,omitempty"`
	GameScores  *GameScores     `json:"gameScores,omitempty"`
	RoundScores *RoundScores    `json:"roundScores,omitempty"`
	Question    *Question       `json:"question,omitempty"`
	Realtime    json.RawMessage `json:"realtime,omitempty"`
	Sounds      []SoundEvent    `json:"sounds,omitempty"`
}

// CreateGameRequest request para crear partida
type CreateGameRequest struct {
	Title string `json:"title"`
}

// AddTeamRequest request para añadir un equipo
type AddTeamRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// AddPlayerRequest request para añadir un jugador a un equipo
type AddPlayerRequest struct {
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
}

// AddRoundRequest request para añadir una ronda
type AddRoundRequest struct {
	Title  string       `json:"title"`
	Type   QuestionType `json:"type"`
	Config RoundConfig  `json:"config"`
}

// ActionRequest cuerpo común de las acciones durante una pregunta.
// Cada acción usa solo los campos que necesita.
type ActionRequest struct {
	PlayerID string `json:"playerId,omitempty"`
	TeamID   string `json:"teamId,omitempty"`
	Idx      *int   `json:"idx,omitempty"`
	Match    []int  `json:"match,omitempty"`
	Bet      int    `json:"bet,omitempty"`
	Correct  *bool  `json:"correct,omitempty"`
	Delta    int    `json:"delta,omitempty"`
	Epoch    int64  `json:"epoch,omitempty"`
}

// GameDefinition partida completa descrita en JSON, para precargarla
type GameDefinition struct {
	Title  string            `json:"title"`
	Teams  []TeamDefinition  `json:"teams"`
	Rounds []RoundDefinition `json:"rounds"`
}

type TeamDefinition struct {
	Name    string   `json:"name"`
	Color   string   `json:"color,omitempty"`
	Players []string `json:"players,omitempty"`
}

// RoundDefinition las preguntas sin tipo heredan el de la ronda
type RoundDefinition struct {
	Title     string       `json:"title"`
	Type      QuestionType `json:"type"`
	Config    RoundConfig  `json:"config"`
	Questions []Question   `json:"questions"`
}
