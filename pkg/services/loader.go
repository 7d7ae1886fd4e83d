package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

// LoadGameFromFile crea una partida en edición a partir de un archivo JSON
func (s *GameService) LoadGameFromFile(ctx context.Context, filePath string) (*models.Game, error) {
	slog.Info("📂 Cargando partida desde archivo", "path", filePath)

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading game file: %w", err)
	}

	var def models.GameDefinition
	if err := json.Unmarshal(jsonData, &def); err != nil {
		return nil, validationf("invalid game file %s: %v", filePath, err)
	}
	return s.LoadGame(ctx, def)
}

// LoadGame crea la partida, sus equipos, jugadores, rondas y preguntas. Cada
// paso es su propia unidad: si uno falla la partida queda a medias en edición.
func (s *GameService) LoadGame(ctx context.Context, def models.GameDefinition) (*models.Game, error) {
	game, err := s.CreateGame(ctx, def.Title)
	if err != nil {
		return nil, err
	}

	for _, td := range def.Teams {
		team, err := s.AddTeam(ctx, game.ID, td.Name, td.Color)
		if err != nil {
			return nil, fmt.Errorf("team %q: %w", td.Name, err)
		}
		for _, name := range td.Players {
			if _, err := s.AddPlayer(ctx, game.ID, team.ID, name); err != nil {
				return nil, fmt.Errorf("player %q: %w", name, err)
			}
		}
	}

	questions := 0
	for _, rd := range def.Rounds {
		round, err := s.AddRound(ctx, game.ID, rd.Title, rd.Type, rd.Config)
		if err != nil {
			return nil, fmt.Errorf("round %q: %w", rd.Title, err)
		}
		for _, q := range rd.Questions {
			if q.Type == "" {
				q.Type = rd.Type
			}
			if _, err := s.AddQuestion(ctx, game.ID, round.ID, q); err != nil {
				return nil, fmt.Errorf("question %q of round %q: %w", q.Title, rd.Title, err)
			}
			questions++
		}
	}

	var loaded models.Game
	if err := s.exec.Read(ctx, models.GameKey(game.ID), &loaded); err != nil {
		return nil, err
	}
	slog.Info("✅ Partida cargada", "game", loaded.ID, "teams", len(loaded.Teams), "rounds", len(loaded.Rounds), "questions", questions)
	return &loaded, nil
}
