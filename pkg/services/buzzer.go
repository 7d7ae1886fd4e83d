package services

import (
	"context"
	"log/slog"
	"slices"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

// BuzzerService preguntas de pulsador: pistas progresivas, imagen, emoji,
// blindtest y básica. El primero de la cola responde.
type BuzzerService struct {
	*core
}

func (s *BuzzerService) load(u *unit, roundID, questionID string) (*models.Game, *models.Round, *models.Question, *models.BuzzerState, error) {
	game, round, q, err := u.activeQuestion(roundID, questionID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if !q.Type.IsBuzzer() {
		return nil, nil, nil, nil, validationf("question %s is not a buzzer question", questionID)
	}
	state, err := get[models.BuzzerState](u, realtimeKey(u, questionID))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if state.Ended() {
		return nil, nil, nil, nil, stalef("question %s already ended", questionID)
	}
	return game, round, q, state, nil
}

// AddToQueue el jugador pulsa. Pulsar estando ya en la cola no tiene efecto.
func (s *BuzzerService) AddToQueue(ctx context.Context, gameID, roundID, questionID, playerID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID, "playerId", playerID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		_, round, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if _, err := u.player(playerID); err != nil {
			return err
		}
		if slices.Contains(state.Buzzed, playerID) {
			return nil
		}
		if max := round.Config.MaxTries; max > 0 && state.Tries(playerID) >= max {
			return stalef("player %s has no tries left", playerID)
		}
		if q.Type == models.QuestionTypeProgressiveClues && state.CanceledAtClue(playerID, state.ClueIdx) {
			return stalef("player %s must wait for the next clue", playerID)
		}

		_, head := enqueue(&state.BuzzerQueue, playerID)
		if head {
			if err := u.focusHead(&state.BuzzerQueue, questionID, round.Config.ThinkingTimeSec); err != nil {
				return err
			}
		}
		if err := u.sound("buzz"); err != nil {
			return err
		}
		return u.put(realtimeKey(u, questionID), state)
	})
}

// RemoveFromQueue el jugador retira su pulsación.
func (s *BuzzerService) RemoveFromQueue(ctx context.Context, gameID, roundID, questionID, playerID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID, "playerId", playerID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		_, round, _, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		removed, wasHead := dequeue(&state.BuzzerQueue, playerID)
		if !removed {
			return nil
		}
		if err := u.setPlayerStatus(playerID, models.PlayerStatusIdle); err != nil {
			return err
		}
		if wasHead {
			if err := u.focusHead(&state.BuzzerQueue, questionID, round.Config.ThinkingTimeSec); err != nil {
				return err
			}
		}
		return u.put(realtimeKey(u, questionID), state)
	})
}

// ValidateAnswer el organizador acepta la respuesta del primero de la cola.
// Solo puede haber un ganador: la pregunta termina en la misma unidad.
func (s *BuzzerService) ValidateAnswer(ctx context.Context, gameID, roundID, questionID, playerID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID, "playerId", playerID); err != nil {
		return err
	}

	var teamID string
	err := s.run(ctx, gameID, func(u *unit) error {
		game, round, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if state.Head() != playerID {
			return stalef("player %s is not first in the buzzer queue", playerID)
		}
		p, err := u.player(playerID)
		if err != nil {
			return err
		}
		teamID = p.TeamID

		if err := u.increaseTeamScore(roundID, questionID, p.TeamID, round.Config.Reward); err != nil {
			return err
		}
		if err := u.setPlayerStatus(playerID, models.PlayerStatusCorrect); err != nil {
			return err
		}
		state.Buzzed = state.Buzzed[1:]
		state.Winner = &models.Winner{PlayerID: playerID, TeamID: p.TeamID}
		if err := u.sound("correct_answer"); err != nil {
			return err
		}
		return s.finish(u, game, round, q, state)
	})
	if err != nil {
		return err
	}

	slog.Info("respuesta validada", "game", gameID, "question", questionID, "player", playerID, "team", teamID)
	return nil
}

// InvalidateAnswer el organizador rechaza la respuesta del primero de la cola.
func (s *BuzzerService) InvalidateAnswer(ctx context.Context, gameID, roundID, questionID, playerID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID, "playerId", playerID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, round, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		return s.cancel(u, game, round, q, state, playerID)
	})
}

// cancel camino compartido por el rechazo manual y el vencimiento.
func (s *BuzzerService) cancel(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.BuzzerState, playerID string) error {
	if err := u.cancelHead(&state.BuzzerQueue, playerID, state.ClueIdx); err != nil {
		return err
	}
	if triesExhausted(&state.BuzzerQueue, game.Players, round.Config.MaxTries) {
		return s.finish(u, game, round, q, state)
	}
	if err := u.focusHead(&state.BuzzerQueue, q.ID, round.Config.ThinkingTimeSec); err != nil {
		return err
	}
	return u.put(realtimeKey(u, q.ID), state)
}

// ClearQueue el organizador vacía la cola.
func (s *BuzzerService) ClearQueue(ctx context.Context, gameID, roundID, questionID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		_, _, _, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if err := u.clearQueue(&state.BuzzerQueue); err != nil {
			return err
		}
		if err := u.resetTimer(questionID); err != nil {
			return err
		}
		return u.put(realtimeKey(u, questionID), state)
	})
}

// RevealNextClue muestra la siguiente pista de una pregunta de pistas
// progresivas. Los jugadores cancelados vuelven a poder pulsar.
func (s *BuzzerService) RevealNextClue(ctx context.Context, gameID, roundID, questionID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, _, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if q.Type != models.QuestionTypeProgressiveClues {
			return validationf("question %s has no clues", questionID)
		}
		if state.ClueIdx+1 >= len(q.Clues) {
			return stalef("all clues of question %s are already revealed", questionID)
		}
		state.ClueIdx++

		// Los cancelados en la pista anterior pueden volver a intentarlo.
		for _, playerID := range game.Players {
			if slices.Contains(state.Buzzed, playerID) {
				continue
			}
			if err := u.setPlayerStatus(playerID, models.PlayerStatusIdle); err != nil {
				return err
			}
		}
		if err := u.sound("next_clue"); err != nil {
			return err
		}
		return u.put(realtimeKey(u, questionID), state)
	})
}

func (s *BuzzerService) finish(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.BuzzerState) error {
	if err := u.clearQueue(&state.BuzzerQueue); err != nil {
		return err
	}
	state.End(u.now)
	if err := u.put(realtimeKey(u, q.ID), state); err != nil {
		return err
	}
	return u.finishQuestion(game, round, q.ID)
}

func (s *BuzzerService) reset(u *unit, round *models.Round, q *models.Question) error {
	return u.put(realtimeKey(u, q.ID), &models.BuzzerState{
		QuestionID:  q.ID,
		BuzzerQueue: models.BuzzerQueue{Buzzed: []string{}, Canceled: []models.Cancellation{}},
	})
}

func (s *BuzzerService) start(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.BuzzerState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	now := u.now
	state.DateStart = &now
	if err := u.setAllPlayersStatus(game, models.PlayerStatusIdle); err != nil {
		return err
	}
	if err := u.resetTimer(q.ID); err != nil {
		return err
	}
	return u.put(realtimeKey(u, q.ID), state)
}

// expire: con cola, se cancela al primero; sin cola, el temporizador vuelve a reset.
func (s *BuzzerService) expire(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.BuzzerState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	if state.Ended() {
		return nil
	}
	head := state.Head()
	if head == "" {
		return u.resetTimer(q.ID)
	}
	return s.cancel(u, game, round, q, state, head)
}

func (s *BuzzerService) end(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.BuzzerState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	if state.Ended() {
		return nil
	}
	return s.finish(u, game, round, q, state)
}
