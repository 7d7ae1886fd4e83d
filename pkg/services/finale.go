package services

import (
	"context"
	"log/slog"
	"slices"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

// FinaleService ronda final: cada pregunta de la ronda es un tema con
// secciones. El equipo con el turno elige un tema y responde a todas sus
// preguntas; el resultado del tema se suma a la ronda al terminarlo.
type FinaleService struct {
	*core
}

func (s *FinaleService) load(u *unit, roundID, themeID string) (*models.Game, *models.Round, *models.Question, *models.FinaleState, error) {
	game, round, q, err := u.activeQuestion(roundID, themeID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if q.Type != models.QuestionTypeFinale {
		return nil, nil, nil, nil, validationf("question %s is not a finale theme", themeID)
	}
	state, err := get[models.FinaleState](u, realtimeKey(u, themeID))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if state.Ended() {
		return nil, nil, nil, nil, stalef("theme %s already ended", themeID)
	}
	return game, round, q, state, nil
}

// StartTheme el equipo con el turno elige un tema aún no jugado.
func (s *FinaleService) StartTheme(ctx context.Context, gameID, roundID, themeID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "themeId", themeID); err != nil {
		return err
	}

	var teamID string
	err := s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		if game.CurrentRound != roundID {
			return stalef("round %s is not the current round", roundID)
		}
		if !game.Status.CanTransition(models.GameStatusQuestionActive) || game.Status == models.GameStatusQuestionActive {
			return stalef("cannot start a theme while game is %s", game.Status)
		}
		round, err := u.round(roundID)
		if err != nil {
			return err
		}
		if round.Type != models.QuestionTypeFinale {
			return validationf("round %s is not a finale round", roundID)
		}
		idx := slices.Index(round.Questions, themeID)
		if idx < 0 {
			return validationf("theme %s does not belong to round %s", themeID, roundID)
		}
		q, err := u.question(themeID)
		if err != nil {
			return err
		}
		state, err := get[models.FinaleState](u, realtimeKey(u, themeID))
		if err != nil {
			return err
		}
		if state.DateStart != nil {
			return stalef("theme %s was already played", themeID)
		}

		round.CurrentQuestionIdx = idx
		if err := u.saveRound(round); err != nil {
			return err
		}
		if err := s.begin(u, game, round, q, state); err != nil {
			return err
		}
		teamID = state.TeamID

		game.CurrentQuestion = themeID
		game.Status = models.GameStatusQuestionActive
		return u.saveGame(game)
	})
	if err != nil {
		return err
	}

	slog.Info("tema de la final iniciado", "game", gameID, "theme", themeID, "team", teamID)
	return nil
}

// begin asigna el tema al equipo con el turno y abre la primera sección.
func (s *FinaleService) begin(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.FinaleState) error {
	chooser, err := u.chooser()
	if err != nil {
		return err
	}
	teamID := chooser.Current()
	if teamID == "" {
		return stalef("no team can play theme %s", q.ID)
	}

	now := u.now
	state.DateStart = &now
	state.TeamID = teamID
	state.Phase = models.FinalePhaseSection
	state.SectionIdx = 0
	state.QuestionIdx = 0

	if err := u.setAllPlayersStatus(game, models.PlayerStatusIdle); err != nil {
		return err
	}
	if err := u.setTeamStatus(teamID, models.PlayerStatusFocus); err != nil {
		return err
	}
	if err := u.startTimer(q.ID, round.Config.ThinkingTimeSec); err != nil {
		return err
	}
	return u.put(realtimeKey(u, q.ID), state)
}

// SubmitAnswerOutcome el organizador marca la respuesta a la pregunta actual
// del tema. Un acierto suma Reward y un fallo resta Penalty al tema; en
// ambos casos se pasa a la siguiente pregunta.
func (s *FinaleService) SubmitAnswerOutcome(ctx context.Context, gameID, roundID, themeID string, correct bool) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "themeId", themeID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, round, q, state, err := s.load(u, roundID, themeID)
		if err != nil {
			return err
		}
		if state.Phase != models.FinalePhaseSection {
			return stalef("theme %s is waiting for the next section", themeID)
		}
		return s.answer(u, game, round, q, state, correct)
	})
}

func (s *FinaleService) answer(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.FinaleState, correct bool) error {
	state.Outcomes = append(state.Outcomes, models.FinaleOutcome{
		SectionIdx:  state.SectionIdx,
		QuestionIdx: state.QuestionIdx,
		Correct:     correct,
		Timestamp:   u.now,
	})

	sound := "wrong_answer"
	if correct {
		state.Score += round.Config.Reward
		sound = "correct_answer"
	} else {
		state.Score -= round.Config.Penalty
	}
	if err := u.sound(sound); err != nil {
		return err
	}

	section := q.Sections[state.SectionIdx]
	switch {
	case state.QuestionIdx+1 < len(section.Questions):
		state.QuestionIdx++
		if err := u.startTimer(q.ID, round.Config.ThinkingTimeSec); err != nil {
			return err
		}
	case state.SectionIdx+1 < len(q.Sections):
		state.Phase = models.FinalePhaseSectionEnd
		if err := u.stopTimer(q.ID); err != nil {
			return err
		}
	default:
		return s.finishTheme(u, game, round, q, state)
	}
	return u.put(realtimeKey(u, q.ID), state)
}

// AdvanceSection abre la siguiente sección del tema.
func (s *FinaleService) AdvanceSection(ctx context.Context, gameID, roundID, themeID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "themeId", themeID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		_, round, q, state, err := s.load(u, roundID, themeID)
		if err != nil {
			return err
		}
		if state.Phase != models.FinalePhaseSectionEnd {
			return stalef("theme %s has a section in progress", themeID)
		}
		state.SectionIdx++
		state.QuestionIdx = 0
		state.Phase = models.FinalePhaseSection
		if err := u.sound("next_section"); err != nil {
			return err
		}
		if err := u.startTimer(q.ID, round.Config.ThinkingTimeSec); err != nil {
			return err
		}
		return u.put(realtimeKey(u, themeID), state)
	})
}

// finishTheme suma el tema a la ronda y pasa el turno al siguiente equipo.
func (s *FinaleService) finishTheme(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.FinaleState) error {
	if err := u.increaseTeamScore(round.ID, q.ID, state.TeamID, state.Score); err != nil {
		return err
	}
	chooser, err := u.chooser()
	if err != nil {
		return err
	}
	chooser.Advance()
	if err := u.saveChooser(chooser); err != nil {
		return err
	}
	if err := u.setTeamStatus(state.TeamID, models.PlayerStatusIdle); err != nil {
		return err
	}
	return s.finish(u, game, round, q, state)
}

func (s *FinaleService) finish(u *unit, game *models.Game, round *models.Round, q *models.Question, state *models.FinaleState) error {
	state.Phase = models.FinalePhaseThemeEnd
	state.End(u.now)
	if err := u.put(realtimeKey(u, q.ID), state); err != nil {
		return err
	}
	return u.finishQuestion(game, round, q.ID)
}

func (s *FinaleService) reset(u *unit, round *models.Round, q *models.Question) error {
	return u.put(realtimeKey(u, q.ID), &models.FinaleState{
		QuestionID: q.ID,
		Phase:      models.FinalePhaseIdle,
		Outcomes:   []models.FinaleOutcome{},
	})
}

func (s *FinaleService) start(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.FinaleState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	return s.begin(u, game, round, q, state)
}

// expire: sin respuesta a tiempo cuenta como fallo.
func (s *FinaleService) expire(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.FinaleState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	if state.Ended() || state.Phase != models.FinalePhaseSection {
		return nil
	}
	return s.answer(u, game, round, q, state, false)
}

// end: terminar un tema a la fuerza no lo puntúa ni mueve el turno.
func (s *FinaleService) end(u *unit, game *models.Game, round *models.Round, q *models.Question) error {
	state, err := get[models.FinaleState](u, realtimeKey(u, q.ID))
	if err != nil {
		return err
	}
	if state.Ended() {
		return nil
	}
	return s.finish(u, game, round, q, state)
}

// themesLeft indica si queda algún tema por jugar en la ronda.
func (u *unit) themesLeft(round *models.Round) (bool, error) {
	for _, themeID := range round.Questions {
		state, err := get[models.FinaleState](u, realtimeKey(u, themeID))
		if err != nil {
			return false, err
		}
		if state.DateStart == nil {
			return true, nil
		}
	}
	return false, nil
}
