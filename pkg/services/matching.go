package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

// MatchingService preguntas de emparejamiento. Los equipos juegan por turnos
// según el orden global; cada error suma una falta y al llegar a MaxMistakes
// el equipo queda eliminado de la pregunta.
type MatchingService struct {
	*core
}

func (s *MatchingService) load(u *unit, roundID, questionID string) (*models.Game, *models.Round, *models.Question, *models.MatchingState, error) {
	game, round, q, err := u.activeQuestion(roundID, questionID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if q.Type != models.QuestionTypeMatching {
		return nil, nil, nil, nil, validationf("question %s is not a matching question", questionID)
	}
	state, err := get[models.MatchingState](u, realtimeKey(u, questionID))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if state.Ended() {
		return nil, nil, nil, nil, stalef("question %s already ended", questionID)
	}
	if state.Mistakes == nil {
		state.Mistakes = map[string]int{}
	}
	return game, round, q, state, nil
}

// evaluateMatch: todas las columnas en la misma fila es correcto; al menos
// dos coincidiendo es parcial.
func evaluateMatch(match []int) models.MatchOutcome {
	counts := make(map[int]int, len(match))
	best := 0
	for _, row := range match {
		counts[row]++
		best = max(best, counts[row])
	}
	switch {
	case best == len(match):
		return models.MatchCorrect
	case best >= 2:
		return models.MatchPartial
	default:
		return models.MatchIncorrect
	}
}

// SubmitMatch el equipo con el turno propone una fila: match[c] es la fila
// del elemento elegido en la columna c.
func (s *MatchingService) SubmitMatch(ctx context.Context, gameID, roundID, questionID, teamID string, match []int) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID, "teamId", teamID); err != nil {
		return err
	}
	if len(match) < 2 {
		return validationf("a match needs at least two columns")
	}

	var outcome models.MatchOutcome
	err := s.run(ctx, gameID, func(u *unit) error {
		game, round, q, state, err := s.load(u, roundID, questionID)
		if err != nil {
			return err
		}
		if len(match) != q.Columns() {
			return validationf("match has %d columns, question has %d", len(match), q.Columns())
		}
		for _, row := range match {
			if row < 0 || row >= len(q.Rows) {
				return validationf("row %d out of range", row)
			}
		}

		chooser, err := u.chooser()
		if err != nil {
			return err
		}
		if chooser.Current() != teamID {
			return stalef("it is not team %s's turn", teamID)
		}
		if slices.Contains(state.Eliminated, teamID) {
			return stalef("team %s is eliminated", teamID)
		}
		for _, row := range match {
			if state.Matched(row) {
				return stalef("row %d is already matched", row)
			}
		}

		outcome = evaluateMatch(match)
		return s.apply(u, game, round, q, state, chooser, teamID, match, outcome)
	})
	if err != nil {
		return err
	}

	slog.Debug("emparejamiento enviado", "game", gameID, "question", questionID, "team", teamID, "outcome", outcome)
	return nil
}

func (s *MatchingService) apply(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.MatchingState, chooser *models.Chooser, teamID string, match []int, outcome models.MatchOutcome) error {
	record := models.MatchRecord{
		TeamID:    teamID,
		Match:     slices.Clone(match),
		Outcome:   outcome,
		Timestamp: u.now,
	}

	switch outcome {
	case models.MatchCorrect:
		state.Correct = append(state.Correct, record)
		if err := u.sound("correct_answer"); err != nil {
			return err
		}
		if len(state.Correct) == len(q.Rows) {
			// Última fila: el equipo puntúa y el orden se rehace de menor a mayor.
			if err := u.increaseTeamScore(round.ID, q.ID, teamID, round.Config.Reward); err != nil {
				return err
			}
			if err := u.setTeamStatus(teamID, models.PlayerStatusCorrect); err != nil {
				return err
			}
			if _, err := u.recomputeChooser(round.ID, true); err != nil {
				return err
			}
			return s.finish(u, game, round, q, state)
		}

	default:
		if outcome == models.MatchPartial {
			state.Partial = append(state.Partial, record)
		} else {
			state.Incorrect = append(state.Incorrect, record)
		}
		state.Mistakes[teamID]++
		if err := u.sound("wrong_answer"); err != nil {
			return err
		}
		if state.Mistakes[teamID] >= round.Config.MaxMistakes && !slices.Contains(state.Eliminated, teamID) {
			state.Eliminated = append(state.Eliminated, teamID)
			if err := u.setTeamStatus(teamID, models.PlayerStatusWrong); err != nil {
				return err
			}
		}
	}

	return s.passTurn(u, game, round, q, state, chooser, teamID)
}

// passTurn da el turno al siguiente equipo no eliminado, o termina la
// pregunta si ya no queda ninguno.
func (s *MatchingService) passTurn(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.MatchingState, chooser *models.Chooser, teamID string) error {
	err := chooser.AdvanceSkipping(state.Eliminated)
	if errors.Is(err, models.ErrNoEligibleTeam) {
		if _, err := u.recomputeChooser(round.ID, true); err != nil {
			return err
		}
		return s.finish(u, game, round, q, state)
	}
	if err != nil {
		return err
	}
	if err := u.saveChooser(chooser); err != nil {
		return err
	}

	if !slices.Contains(state.Eliminated, teamID) {
		if err := u.setTeamStatus(teamID, models.PlayerStatusIdle); err != nil {
			return err
		}
	}
	if err := u.setTeamStatus(chooser.Current(), models.PlayerStatusFocus); err != nil {
		return err
	}
	if err := u.startTimer(q.ID, round.Config.ThinkingTimeSec); err != nil {
		return err
	}
	return u.put(realtimeKey(u, q.ID), state)
}

func (s *MatchingService) finish(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.MatchingState) error {
	state.End(u.now)
	if err := u.put(realtimeKey(u, q.ID), state); err != nil {
		return err
	}
	return u.finishQuestion(game, round, q.ID)
}

func (s *MatchingService) reset(u *unit, round *models.Round, q *models.Question) error {
	return u.put(realtimeKey(u, q.ID), &models.MatchingState{
		QuestionID: q.ID,
		Correct:    []models.MatchRecord{},
		Partial:    []models.MatchRecord{},
		Incorrect:  []models.MatchRecord{},
		Mistakes:   map[string]int{},
		Eliminated: []string{},
	})
}

func (s *MatchingService) start(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.MatchingState](u, realtimeKey(u, q.ID))
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

// expire: agotar el tiempo cuenta como un error del equipo con el turno.
func (s *MatchingService) expire(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.MatchingState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	if state.Ended() {
		return nil
	}
	if state.Mistakes == nil {
		state.Mistakes = map[string]int{}
	}
	chooser, err := u.chooser()
	if err != nil {
		return err
	}
	teamID := chooser.Current()
	if teamID == "" {
		return s.finish(u, game, round, q, state)
	}
	return s.apply(u, game, round, q, state, chooser, teamID, nil, models.MatchIncorrect)
}

func (s *MatchingService) end(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.MatchingState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	if state.Ended() {
		return nil
	}
	return s.finish(u, game, round, q, state)
}
