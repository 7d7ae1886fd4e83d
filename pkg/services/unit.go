package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/jmettler27/Pop-sub001/pkg/store"
)

// unit vista de una partida dentro de una transacción. Todas las lecturas y
// escrituras de una operación pasan por aquí.
type unit struct {
	tx     store.Tx
	gameID string
	now    time.Time
	rnd    *lockedRand
}

func get[T any](u *unit, key string) (*T, error) {
	return store.Load[T](u.tx, key)
}

func (u *unit) put(key string, v any) error {
	return u.tx.Set(key, v)
}

func (u *unit) game() (*models.Game, error) {
	return get[models.Game](u, models.GameKey(u.gameID))
}

func (u *unit) saveGame(g *models.Game) error {
	return u.put(models.GameKey(u.gameID), g)
}

func (u *unit) round(roundID string) (*models.Round, error) {
	return get[models.Round](u, models.RoundKey(u.gameID, roundID))
}

func (u *unit) saveRound(r *models.Round) error {
	return u.put(models.RoundKey(u.gameID, r.ID), r)
}

func (u *unit) question(questionID string) (*models.Question, error) {
	return get[models.Question](u, models.QuestionKey(u.gameID, questionID))
}

func (u *unit) team(teamID string) (*models.Team, error) {
	return get[models.Team](u, models.TeamKey(u.gameID, teamID))
}

func (u *unit) player(playerID string) (*models.Player, error) {
	return get[models.Player](u, models.PlayerKey(u.gameID, playerID))
}

func (u *unit) setPlayerStatus(playerID string, status models.PlayerStatus) error {
	p, err := u.player(playerID)
	if err != nil {
		return err
	}
	if p.Status == status {
		return nil
	}
	p.Status = status
	return u.put(models.PlayerKey(u.gameID, playerID), p)
}

func (u *unit) setTeamStatus(teamID string, status models.PlayerStatus) error {
	t, err := u.team(teamID)
	if err != nil {
		return err
	}
	for _, playerID := range t.Players {
		if err := u.setPlayerStatus(playerID, status); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) setAllPlayersStatus(game *models.Game, status models.PlayerStatus) error {
	for _, playerID := range game.Players {
		if err := u.setPlayerStatus(playerID, status); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) chooser() (*models.Chooser, error) {
	c, err := get[models.Chooser](u, models.ChooserKey(u.gameID))
	if errors.Is(err, store.ErrNotFound) {
		return &models.Chooser{}, nil
	}
	return c, err
}

func (u *unit) saveChooser(c *models.Chooser) error {
	return u.put(models.ChooserKey(u.gameID), c)
}

func (u *unit) timer() (*models.Timer, error) {
	t, err := get[models.Timer](u, models.TimerKey(u.gameID))
	if errors.Is(err, store.ErrNotFound) {
		return &models.Timer{Status: models.TimerStatusReset}, nil
	}
	return t, err
}

// startTimer arranca la cuenta atrás; una duración no positiva la deja en reset.
func (u *unit) startTimer(questionID string, seconds int) error {
	if seconds <= 0 {
		return u.resetTimer(questionID)
	}
	t, err := u.timer()
	if err != nil {
		return err
	}
	now := u.now
	t.Status = models.TimerStatusRunning
	t.QuestionID = questionID
	t.DurationSec = seconds
	t.StartedAt = &now
	t.Epoch++
	return u.put(models.TimerKey(u.gameID), t)
}

func (u *unit) resetTimer(questionID string) error {
	return u.setTimerStatus(questionID, models.TimerStatusReset)
}

func (u *unit) stopTimer(questionID string) error {
	return u.setTimerStatus(questionID, models.TimerStatusStopped)
}

func (u *unit) setTimerStatus(questionID string, status models.TimerStatus) error {
	t, err := u.timer()
	if err != nil {
		return err
	}
	t.Status = status
	t.QuestionID = questionID
	t.StartedAt = nil
	t.Epoch++
	return u.put(models.TimerKey(u.gameID), t)
}

// sound encola una señal para las pantallas en la misma unidad.
func (u *unit) sound(name string) error {
	q, err := get[models.SoundQueue](u, models.SoundsKey(u.gameID))
	if errors.Is(err, store.ErrNotFound) {
		q = &models.SoundQueue{}
	} else if err != nil {
		return err
	}
	q.Push(models.SoundEvent{ID: uuid.NewString(), Name: name, Timestamp: u.now})
	return u.put(models.SoundsKey(u.gameID), q)
}

// activeQuestion carga la partida y comprueba que la pregunta está en curso.
func (u *unit) activeQuestion(roundID, questionID string) (*models.Game, *models.Round, *models.Question, error) {
	game, err := u.game()
	if err != nil {
		return nil, nil, nil, err
	}
	if game.CurrentRound != roundID || game.CurrentQuestion != questionID {
		return nil, nil, nil, stalef("question %s is not the current question", questionID)
	}
	if game.Status != models.GameStatusQuestionActive {
		return nil, nil, nil, stalef("question %s is not active (game is %s)", questionID, game.Status)
	}

	round, err := u.round(roundID)
	if err != nil {
		return nil, nil, nil, err
	}
	q, err := u.question(questionID)
	if err != nil {
		return nil, nil, nil, err
	}
	return game, round, q, nil
}

// finishQuestion parte común del fin de cualquier pregunta: para el
// temporizador, fija el progreso de la ronda y deja la partida en QUESTION_END.
func (u *unit) finishQuestion(game *models.Game, round *models.Round, questionID string) error {
	if err := u.stopTimer(questionID); err != nil {
		return err
	}
	if err := u.recordProgress(round.ID, questionID, game.Teams); err != nil {
		return err
	}
	if err := u.sound("question_end"); err != nil {
		return err
	}
	if game.Status == models.GameStatusQuestionActive && game.CurrentQuestion == questionID {
		game.Status = models.GameStatusQuestionEnd
		return u.saveGame(game)
	}
	return nil
}
