package services

import (
	"context"
	"slices"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

// RevealService preguntas de etiquetado y citas: cada elemento adivinado
// puntúa por separado para el equipo del primero de la cola.
type RevealService struct {
	*core
}

func (s *RevealService) load(u *unit, roundID, questionID string) (*models.Game, *models.Round, *models.Question, *models.RevealState, error) {
	game, round, q, err := u.activeQuestion(roundID, questionID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if !q.Type.IsReveal() {
		return nil, nil, nil, nil, validationf("question %s is not a reveal question", questionID)
	}
	state, err := get[models.RevealState](u, realtimeKey(u, questionID))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if state.Ended() {
		return nil, nil, nil, nil, stalef("question %s already ended", questionID)
	}
	if state.Revealed == nil {
		state.Revealed = map[int]models.Reveal{}
	}
	return game, round, q, state, nil
}

func (s *RevealService) AddToQueue(ctx context.Context, gameID, roundID, questionID, playerID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID, "playerId", playerID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		_, round, _, state, err := s.load(u, roundID, questionID)
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

// Cancel rechaza la respuesta del primero de la cola.
func (s *RevealService) Cancel(ctx context.Context, gameID, roundID, questionID, playerID string) error {
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

func (s *RevealService) cancel(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.RevealState, playerID string) error {
	if err := u.cancelHead(&state.BuzzerQueue, playerID, 0); err != nil {
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

// RevealElement revela el elemento idx. Si hay alguien en la cola, su equipo
// gana RewardPerElement y el jugador sale de la cola; si no, el organizador
// lo revela sin puntos. Revelar el último adivinable termina la pregunta.
func (s *RevealService) RevealElement(ctx context.Context, gameID, roundID, questionID string, idx int) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID); err != nil {
		return err
	}
	if idx < 0 {
		return validationf("element index %d out of range", idx)
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, round, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if idx >= len(q.Elements) || !q.Elements[idx].Guessable {
			return validationf("element %d of question %s cannot be revealed", idx, questionID)
		}
		if _, done := state.Revealed[idx]; done {
			return stalef("element %d already revealed", idx)
		}

		reveal := models.Reveal{Timestamp: u.now}
		if head := state.Head(); head != "" {
			p, err := u.player(head)
			if err != nil {
				return err
			}
			reveal.PlayerID, reveal.TeamID = p.ID, p.TeamID
			if err := u.increaseTeamScore(roundID, questionID, p.TeamID, round.Config.RewardPerElement); err != nil {
				return err
			}
			if err := u.setPlayerStatus(head, models.PlayerStatusCorrect); err != nil {
				return err
			}
			state.Buzzed = state.Buzzed[1:]
		}
		state.Revealed[idx] = reveal
		if err := u.sound("correct_answer"); err != nil {
			return err
		}

		if len(state.Revealed) >= q.GuessableCount() {
			return s.finish(u, game, round, q, state)
		}
		if err := u.focusHead(&state.BuzzerQueue, questionID, round.Config.ThinkingTimeSec); err != nil {
			return err
		}
		return u.put(realtimeKey(u, questionID), state)
	})
}

// ValidateAll el jugador acierta todo de una vez: su equipo gana
// RewardPerElement por cada elemento adivinable y la pregunta termina.
func (s *RevealService) ValidateAll(ctx context.Context, gameID, roundID, questionID, playerID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID, "playerId", playerID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
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

		reward := round.Config.RewardPerElement * q.GuessableCount()
		if err := u.increaseTeamScore(roundID, questionID, p.TeamID, reward); err != nil {
			return err
		}
		for i, e := range q.Elements {
			if _, done := state.Revealed[i]; e.Guessable && !done {
				state.Revealed[i] = models.Reveal{PlayerID: p.ID, TeamID: p.TeamID, Timestamp: u.now}
			}
		}
		if err := u.setPlayerStatus(playerID, models.PlayerStatusCorrect); err != nil {
			return err
		}
		state.Buzzed = state.Buzzed[1:]
		if err := u.sound("correct_answer"); err != nil {
			return err
		}
		return s.finish(u, game, round, q, state)
	})
}

func (s *RevealService) finish(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.RevealState) error {
	if err := u.clearQueue(&state.BuzzerQueue); err != nil {
		return err
	}
	state.End(u.now)
	if err := u.put(realtimeKey(u, q.ID), state); err != nil {
		return err
	}
	return u.finishQuestion(game, round, q.ID)
}

func (s *RevealService) reset(u *unit, round *models.Round, q *models.Question) error {
	return u.put(realtimeKey(u, q.ID), &models.RevealState{
		QuestionID:  q.ID,
		BuzzerQueue: models.BuzzerQueue{Buzzed: []string{}, Canceled: []models.Cancellation{}},
		Revealed:    map[int]models.Reveal{},
	})
}

func (s *RevealService) start(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.RevealState](u, realtimeKey(u, q.ID))
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

func (s *RevealService) expire(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.RevealState](u, realtimeKey(u, q.ID))
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

func (s *RevealService) end(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.RevealState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	if state.Ended() {
		return nil
	}
	return s.finish(u, game, round, q, state)
}
