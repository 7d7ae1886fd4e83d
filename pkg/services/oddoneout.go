package services

import (
	"context"
	"log/slog"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

// OddOneOutService preguntas de eliminación: por turnos, cada equipo descarta
// una propuesta. Quien elige el intruso pierde Penalty y la pregunta termina.
type OddOneOutService struct {
	*core
}

func (s *OddOneOutService) load(u *unit, roundID, questionID string) (*models.Game, *models.Round, *models.Question, *models.OddOneOutState, error) {
	game, round, q, err := u.activeQuestion(roundID, questionID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if q.Type != models.QuestionTypeOddOneOut {
		return nil, nil, nil, nil, validationf("question %s is not an odd one out question", questionID)
	}
	state, err := get[models.OddOneOutState](u, realtimeKey(u, questionID))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if state.Ended() {
		return nil, nil, nil, nil, stalef("question %s already ended", questionID)
	}
	return game, round, q, state, nil
}

// SelectProposal un jugador del equipo con el turno elige la propuesta idx.
func (s *OddOneOutService) SelectProposal(ctx context.Context, gameID, roundID, questionID, playerID string, idx int) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID, "playerId", playerID); err != nil {
		return err
	}
	if idx < 0 {
		return validationf("proposal index %d out of range", idx)
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, round, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if idx >= len(q.Proposals) {
			return validationf("proposal index %d out of range", idx)
		}
		p, err := u.player(playerID)
		if err != nil {
			return err
		}
		chooser, err := u.chooser()
		if err != nil {
			return err
		}
		if chooser.Current() != p.TeamID {
			return stalef("it is not team %s's turn", p.TeamID)
		}
		if state.IsSelected(idx) {
			return stalef("proposal %d already selected", idx)
		}
		return s.selectProposal(u, game, round, q, state, chooser, p.TeamID, playerID, idx)
	})
}

func (s *OddOneOutService) selectProposal(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.OddOneOutState, chooser *models.Chooser, teamID, playerID string, idx int) error {
	state.Selected = append(state.Selected, models.Selection{
		Idx:       idx,
		PlayerID:  playerID,
		TeamID:    teamID,
		Timestamp: u.now,
	})

	if q.Proposals[idx].Odd {
		state.LoserTeam = teamID
		if err := u.increaseTeamScore(round.ID, q.ID, teamID, -round.Config.Penalty); err != nil {
			return err
		}
		if err := u.setTeamStatus(teamID, models.PlayerStatusWrong); err != nil {
			return err
		}
		// El perdedor abre la siguiente pregunta.
		chooser.MoveToFront(teamID)
		if err := u.saveChooser(chooser); err != nil {
			return err
		}
		if err := u.sound("wrong_answer"); err != nil {
			return err
		}
		slog.Debug("intruso elegido", "game", u.gameID, "question", q.ID, "team", teamID)
		return s.finish(u, game, round, q, state)
	}

	if err := u.sound("correct_answer"); err != nil {
		return err
	}
	if len(state.Selected) >= len(q.Proposals)-q.OddCount() {
		return s.finish(u, game, round, q, state)
	}

	chooser.Advance()
	if err := u.saveChooser(chooser); err != nil {
		return err
	}
	if err := u.setTeamStatus(teamID, models.PlayerStatusIdle); err != nil {
		return err
	}
	if err := u.setTeamStatus(chooser.Current(), models.PlayerStatusFocus); err != nil {
		return err
	}
	if err := u.startTimer(q.ID, round.Config.ThinkingTimeSec); err != nil {
		return err
	}
	return u.put(realtimeKey(u, q.ID), state)
}

func (s *OddOneOutService) finish(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.OddOneOutState) error {
	state.End(u.now)
	if err := u.put(realtimeKey(u, q.ID), state); err != nil {
		return err
	}
	return u.finishQuestion(game, round, q.ID)
}

func (s *OddOneOutService) reset(u *unit, round *models.Round, q *models.Question) error {
	return u.put(realtimeKey(u, q.ID), &models.OddOneOutState{
		QuestionID: q.ID,
		Selected:   []models.Selection{},
	})
}

func (s *OddOneOutService) start(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.OddOneOutState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	now := u.now
	state.DateStart = &now

	chooser, err := u.chooser()
	if err != nil {
		return err
	}
	if err := u.setAllPlayersStatus(game, models.PlayerStatusIdle); err != nil {
		return err
	}
	if team := chooser.Current(); team != "" {
		if err := u.setTeamStatus(team, models.PlayerStatusFocus); err != nil {
			return err
		}
	}
	if err := u.startTimer(q.ID, round.Config.ThinkingTimeSec); err != nil {
		return err
	}
	return u.put(realtimeKey(u, q.ID), state)
}

// expire: se elige al azar una propuesta libre en nombre del equipo con el turno.
func (s *OddOneOutService) expire(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.OddOneOutState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	if state.Ended() {
		return nil
	}
	chooser, err := u.chooser()
	if err != nil {
		return err
	}

	var free []int
	for i := range q.Proposals {
		if !state.IsSelected(i) {
			free = append(free, i)
		}
	}
	if len(free) == 0 || chooser.Current() == "" {
		return s.finish(u, game, round, q, state)
	}
	idx := free[u.rnd.Intn(len(free))]
	return s.selectProposal(u, game, round, q, state, chooser, chooser.Current(), "", idx)
}

func (s *OddOneOutService) end(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.OddOneOutState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	if state.Ended() {
		return nil
	}
	return s.finish(u, game, round, q, state)
}
