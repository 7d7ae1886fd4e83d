package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

// SnapshotService consultas de solo lectura para las pantallas. Lee fuera de
// cualquier unidad: la vista puede mezclar documentos de confirmaciones
// distintas, lo que basta para mostrar.
type SnapshotService struct {
	*core
}

func (s *SnapshotService) read(ctx context.Context, key string, v any) error {
	return s.exec.Read(ctx, key, v)
}

// readOptional como read, pero un documento ausente no es un error.
func (s *SnapshotService) readOptional(ctx context.Context, key string, v any) (bool, error) {
	err := s.read(ctx, key, v)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Game devuelve el estado completo de la partida.
func (s *SnapshotService) Game(ctx context.Context, gameID string) (*models.GameSnapshot, error) {
	if err := requireIDs("gameId", gameID); err != nil {
		return nil, err
	}

	var game models.Game
	if err := s.read(ctx, models.GameKey(gameID), &game); err != nil {
		return nil, err
	}
	snap := &models.GameSnapshot{Game: &game}

	for _, teamID := range game.Teams {
		var t models.Team
		if err := s.read(ctx, models.TeamKey(gameID, teamID), &t); err != nil {
			return nil, err
		}
		snap.Teams = append(snap.Teams, t)
	}
	for _, playerID := range game.Players {
		var p models.Player
		if err := s.read(ctx, models.PlayerKey(gameID, playerID), &p); err != nil {
			return nil, err
		}
		snap.Players = append(snap.Players, p)
	}
	for _, roundID := range game.Rounds {
		var r models.Round
		if err := s.read(ctx, models.RoundKey(gameID, roundID), &r); err != nil {
			return nil, err
		}
		snap.Rounds = append(snap.Rounds, r)
	}

	var (
		chooser models.Chooser
		timer   models.Timer
		gs      models.GameScores
		sounds  models.SoundQueue
	)
	if ok, err := s.readOptional(ctx, models.ChooserKey(gameID), &chooser); err != nil {
		return nil, err
	} else if ok {
		snap.Chooser = &chooser
	}
	if ok, err := s.readOptional(ctx, models.TimerKey(gameID), &timer); err != nil {
		return nil, err
	} else if ok {
		snap.Timer = &timer
	}
	if ok, err := s.readOptional(ctx, models.GameScoresKey(gameID), &gs); err != nil {
		return nil, err
	} else if ok {
		snap.GameScores = &gs
	}
	if ok, err := s.readOptional(ctx, models.SoundsKey(gameID), &sounds); err != nil {
		return nil, err
	} else if ok {
		snap.Sounds = sounds.Events
	}

	if game.CurrentRound != "" {
		var rs models.RoundScores
		if ok, err := s.readOptional(ctx, models.RoundScoresKey(gameID, game.CurrentRound), &rs); err != nil {
			return nil, err
		} else if ok {
			snap.RoundScores = &rs
		}
	}
	if game.CurrentQuestion != "" {
		q, realtime, err := s.Question(ctx, gameID, game.CurrentQuestion)
		if err != nil {
			return nil, err
		}
		snap.Question = q
		snap.Realtime = realtime
	}
	return snap, nil
}

// Question devuelve la pregunta base y su estado en vivo sin decodificar.
func (s *SnapshotService) Question(ctx context.Context, gameID, questionID string) (*models.Question, json.RawMessage, error) {
	if err := requireIDs("gameId", gameID, "questionId", questionID); err != nil {
		return nil, nil, err
	}

	var q models.Question
	if err := s.read(ctx, models.QuestionKey(gameID, questionID), &q); err != nil {
		return nil, nil, err
	}
	var realtime json.RawMessage
	if err := s.read(ctx, models.RealtimeKey(gameID, questionID), &realtime); err != nil {
		return nil, nil, fmt.Errorf("realtime state of %s: %w", questionID, err)
	}
	return &q, realtime, nil
}

// Player devuelve un jugador.
func (s *SnapshotService) Player(ctx context.Context, gameID, playerID string) (*models.Player, error) {
	if err := requireIDs("gameId", gameID, "playerId", playerID); err != nil {
		return nil, err
	}
	var p models.Player
	if err := s.read(ctx, models.PlayerKey(gameID, playerID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
