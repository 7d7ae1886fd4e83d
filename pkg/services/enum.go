package services

import (
	"context"
	"log/slog"
	"slices"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

// EnumService preguntas de enumeración: los equipos apuestan cuántos
// elementos sabrán citar y el mejor postor lo intenta.
type EnumService struct {
	*core
}

func (s *EnumService) load(u *unit, roundID, questionID string) (*models.Game, *models.Round, *models.Question, *models.EnumState, error) {
	game, round, q, err := u.activeQuestion(roundID, questionID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if q.Type != models.QuestionTypeEnum {
		return nil, nil, nil, nil, validationf("question %s is not an enumeration question", questionID)
	}
	state, err := get[models.EnumState](u, realtimeKey(u, questionID))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if state.Ended() || state.Phase == models.EnumPhaseEnded {
		return nil, nil, nil, nil, stalef("question %s already ended", questionID)
	}
	return game, round, q, state, nil
}

// SubmitBet apuesta de un equipo durante la reflexión; una por equipo.
// playerID es opcional y solo se guarda para las pantallas.
func (s *EnumService) SubmitBet(ctx context.Context, gameID, roundID, questionID, teamID, playerID string, bet int) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID, "teamId", teamID); err != nil {
		return err
	}
	if bet < 1 {
		return validationf("bet must be at least 1, got %d", bet)
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, _, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if state.Phase != models.EnumPhaseReflection {
			return stalef("bets are closed for question %s", questionID)
		}
		if bet > len(q.Items) {
			return validationf("bet %d exceeds the %d items of the question", bet, len(q.Items))
		}
		if !slices.Contains(game.Teams, teamID) {
			return validationf("team %s does not play in game %s", teamID, gameID)
		}
		for _, b := range state.Bets {
			if b.TeamID == teamID {
				return stalef("team %s already placed a bet", teamID)
			}
		}

		state.Bets = append(state.Bets, models.Bet{
			TeamID:    teamID,
			PlayerID:  playerID,
			Bet:       bet,
			Timestamp: u.now,
		})
		if err := u.sound("bet"); err != nil {
			return err
		}
		return u.put(realtimeKey(u, questionID), state)
	})
}

// EndReflection cierra las apuestas antes de tiempo.
func (s *EnumService) EndReflection(ctx context.Context, gameID, roundID, questionID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, round, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if state.Phase != models.EnumPhaseReflection {
			return stalef("question %s is not in reflection", questionID)
		}
		return s.closeBets(u, game, round, q, state)
	})
}

// highestBet gana la apuesta más alta; en empate, la primera enviada.
func highestBet(bets []models.Bet) *models.Bet {
	var best *models.Bet
	for i := range bets {
		if best == nil || bets[i].Bet > best.Bet {
			best = &bets[i]
		}
	}
	return best
}

// closeBets pasa al desafío con el mejor postor, o termina si nadie apostó.
func (s *EnumService) closeBets(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.EnumState) error {
	best := highestBet(state.Bets)
	if best == nil {
		return s.finish(u, game, round, q, state)
	}

	state.Phase = models.EnumPhaseChallenge
	state.Challenger = &models.Challenger{
		TeamID:   best.TeamID,
		PlayerID: best.PlayerID,
		Bet:      best.Bet,
		Cited:    map[int]bool{},
	}
	if err := u.setTeamStatus(best.TeamID, models.PlayerStatusFocus); err != nil {
		return err
	}
	if err := u.startTimer(q.ID, round.Config.ChallengeTimeSec); err != nil {
		return err
	}
	if err := u.sound("challenge_start"); err != nil {
		return err
	}
	return u.put(realtimeKey(u, q.ID), state)
}

// IncrementCitedCount el organizador cuenta una cita correcta sin decir cuál.
func (s *EnumService) IncrementCitedCount(ctx context.Context, gameID, roundID, questionID string) error {
	return s.cite(ctx, gameID, roundID, questionID, -1)
}

// ValidateItem el organizador marca el elemento idx como citado.
func (s *EnumService) ValidateItem(ctx context.Context, gameID, roundID, questionID string, idx int) error {
	if idx < 0 {
		return validationf("item index %d out of range", idx)
	}
	return s.cite(ctx, gameID, roundID, questionID, idx)
}

func (s *EnumService) cite(ctx context.Context, gameID, roundID, questionID string, idx int) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, round, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if state.Phase != models.EnumPhaseChallenge || state.Challenger == nil {
			return stalef("question %s is not in challenge", questionID)
		}
		ch := state.Challenger
		if idx >= 0 {
			if idx >= len(q.Items) {
				return validationf("item index %d out of range", idx)
			}
			if ch.Cited == nil {
				ch.Cited = map[int]bool{}
			}
			if ch.Cited[idx] {
				return stalef("item %d already cited", idx)
			}
			ch.Cited[idx] = true
		}
		if ch.CitedCount >= len(q.Items) {
			return stalef("every item of question %s is already cited", questionID)
		}
		ch.CitedCount++
		if err := u.sound("correct_answer"); err != nil {
			return err
		}

		if ch.CitedCount >= len(q.Items) {
			return s.settle(u, game, round, q, state)
		}
		return u.put(realtimeKey(u, questionID), state)
	})
}

// EndChallenge el organizador cierra el desafío y se reparten los puntos.
func (s *EnumService) EndChallenge(ctx context.Context, gameID, roundID, questionID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, round, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if state.Phase != models.EnumPhaseChallenge || state.Challenger == nil {
			return stalef("question %s is not in challenge", questionID)
		}
		return s.settle(u, game, round, q, state)
	})
}

// settle: si el retador cita al menos lo apostado gana Reward, más Bonus si
// supera la apuesta; si no, cada uno de los demás equipos gana Reward.
func (s *EnumService) settle(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.EnumState) error {
	ch := state.Challenger
	success := ch.CitedCount >= ch.Bet
	ch.Success = &success

	if success {
		reward := round.Config.Reward
		if ch.CitedCount > ch.Bet {
			reward += round.Config.Bonus
		}
		if err := u.increaseTeamScore(round.ID, q.ID, ch.TeamID, reward); err != nil {
			return err
		}
		if err := u.setTeamStatus(ch.TeamID, models.PlayerStatusCorrect); err != nil {
			return err
		}
	} else {
		for _, teamID := range game.Teams {
			if teamID == ch.TeamID {
				continue
			}
			if err := u.increaseTeamScore(round.ID, q.ID, teamID, round.Config.Reward); err != nil {
				return err
			}
		}
		if err := u.setTeamStatus(ch.TeamID, models.PlayerStatusWrong); err != nil {
			return err
		}
	}

	slog.Debug("desafío resuelto", "game", u.gameID, "question", q.ID, "team", ch.TeamID, "bet", ch.Bet, "cited", ch.CitedCount, "success", success)
	return s.finish(u, game, round, q, state)
}

func (s *EnumService) finish(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.EnumState) error {
	state.Phase = models.EnumPhaseEnded
	state.End(u.now)
	if err := u.put(realtimeKey(u, q.ID), state); err != nil {
		return err
	}
	return u.finishQuestion(game, round, q.ID)
}

func (s *EnumService) reset(u *unit, round *models.Round, q *models.Question) error {
	return u.put(realtimeKey(u, q.ID), &models.EnumState{
		QuestionID: q.ID,
		Phase:      models.EnumPhaseReflection,
		Bets:       []models.Bet{},
	})
}

func (s *EnumService) start(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.EnumState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	now := u.now
	state.DateStart = &now
	if err := u.setAllPlayersStatus(game, models.PlayerStatusIdle); err != nil {
		return err
	}
	if err := u.startTimer(q.ID, round.Config.ThinkingTimeSec); err != nil {
		return err
	}
	return u.put(realtimeKey(u, q.ID), state)
}

// expire: en reflexión cierra las apuestas; en desafío lo resuelve.
func (s *EnumService) expire(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.EnumState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	switch {
	case state.Ended():
		return nil
	case state.Phase == models.EnumPhaseReflection:
		return s.closeBets(u, game, round, q, state)
	case state.Phase == models.EnumPhaseChallenge && state.Challenger != nil:
		return s.settle(u, game, round, q, state)
	}
	return nil
}

func (s *EnumService) end(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.EnumState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	if state.Ended() {
		return nil
	}
	return s.finish(u, game, round, q, state)
}
