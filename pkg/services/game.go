package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/jmettler27/Pop-sub001/pkg/models"
)

const defaultMaxMistakes = 3

// GameService orquesta la partida: montaje, rondas, paso de preguntas y
// reparto de las acciones comunes a la máquina de cada arquetipo.
type GameService struct {
	*core
	machines map[models.QuestionType]archetype
}

func (s *GameService) machine(t models.QuestionType) (archetype, error) {
	m, ok := s.machines[t]
	if !ok {
		return nil, validationf("unsupported question type %q", t)
	}
	return m, nil
}

// CreateGame crea una partida vacía en modo edición
func (s *GameService) CreateGame(ctx context.Context, title string) (*models.Game, error) {
	if title == "" {
		return nil, validationf("title is required")
	}

	game := &models.Game{
		ID:      uuid.NewString(),
		Title:   title,
		Status:  models.GameStatusEdit,
		Rounds:  []string{},
		Teams:   []string{},
		Players: []string{},
	}
	err := s.run(ctx, game.ID, func(u *unit) error {
		game.CreatedAt = u.now
		if err := u.saveChooser(&models.Chooser{Order: []string{}}); err != nil {
			return err
		}
		if err := u.put(models.GameScoresKey(game.ID), models.NewGameScores(nil)); err != nil {
			return err
		}
		if err := u.resetTimer(""); err != nil {
			return err
		}
		if err := u.put(models.SoundsKey(game.ID), &models.SoundQueue{Events: []models.SoundEvent{}}); err != nil {
			return err
		}
		return u.saveGame(game)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("🎮 partida creada", "game", game.ID, "title", title)
	return game, nil
}

// AddTeam añade un equipo mientras la partida está en edición
func (s *GameService) AddTeam(ctx context.Context, gameID, name, color string) (*models.Team, error) {
	if err := requireIDs("gameId", gameID, "name", name); err != nil {
		return nil, err
	}

	team := &models.Team{
		ID:      uuid.NewString(),
		GameID:  gameID,
		Name:    name,
		Color:   color,
		Players: []string{},
	}
	err := s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		if game.Status != models.GameStatusEdit {
			return stalef("teams can only be added while editing (game is %s)", game.Status)
		}
		game.Teams = append(game.Teams, team.ID)

		chooser, err := u.chooser()
		if err != nil {
			return err
		}
		chooser.Add(team.ID)
		if err := u.saveChooser(chooser); err != nil {
			return err
		}
		for _, roundID := range game.Rounds {
			if err := u.initRoundScores(roundID, game.Teams); err != nil {
				return err
			}
		}
		if err := u.put(models.TeamKey(gameID, team.ID), team); err != nil {
			return err
		}
		return u.saveGame(game)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// AddPlayer añade un jugador a un equipo; se admite hasta el final de la partida
func (s *GameService) AddPlayer(ctx context.Context, gameID, teamID, name string) (*models.Player, error) {
	if err := requireIDs("gameId", gameID, "teamId", teamID, "name", name); err != nil {
		return nil, err
	}

	player := &models.Player{
		ID:     uuid.NewString(),
		GameID: gameID,
		TeamID: teamID,
		Name:   name,
		Status: models.PlayerStatusIdle,
	}
	err := s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		if game.Status == models.GameStatusGameEnd {
			return stalef("game %s has ended", gameID)
		}
		team, err := u.team(teamID)
		if err != nil {
			return err
		}
		team.Players = append(team.Players, player.ID)
		game.Players = append(game.Players, player.ID)

		if err := u.put(models.TeamKey(gameID, teamID), team); err != nil {
			return err
		}
		if err := u.put(models.PlayerKey(gameID, player.ID), player); err != nil {
			return err
		}
		return u.saveGame(game)
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// AddRound añade una ronda al final de la partida
func (s *GameService) AddRound(ctx context.Context, gameID, title string, qtype models.QuestionType, cfg models.RoundConfig) (*models.Round, error) {
	if err := requireIDs("gameId", gameID, "title", title); err != nil {
		return nil, err
	}
	if !qtype.Valid() {
		return nil, validationf("unknown round type %q", qtype)
	}
	if cfg.Reward < 0 || cfg.Penalty < 0 || cfg.Bonus < 0 || cfg.RewardPerElement < 0 {
		return nil, validationf("rewards and penalties must not be negative")
	}
	if qtype == models.QuestionTypeMatching && cfg.MaxMistakes <= 0 {
		cfg.MaxMistakes = defaultMaxMistakes
	}

	round := &models.Round{
		ID:                 uuid.NewString(),
		GameID:             gameID,
		Title:              title,
		Type:               qtype,
		Questions:          []string{},
		CurrentQuestionIdx: -1,
		Config:             cfg,
	}
	err := s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		if game.Status != models.GameStatusEdit {
			return stalef("rounds can only be added while editing (game is %s)", game.Status)
		}
		if src := cfg.OrderSourceRound; src != "" && game.RoundIndex(src) < 0 {
			return validationf("order source round %s does not belong to game %s", src, gameID)
		}
		game.Rounds = append(game.Rounds, round.ID)

		if err := u.initRoundScores(round.ID, game.Teams); err != nil {
			return err
		}
		if err := u.saveRound(round); err != nil {
			return err
		}
		return u.saveGame(game)
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}

func compatibleTypes(round, question models.QuestionType) bool {
	if round == question {
		return true
	}
	return (round.IsBuzzer() && question.IsBuzzer()) || (round.IsReveal() && question.IsReveal())
}

// AddQuestion guarda la pregunta base y la añade a la ronda
func (s *GameService) AddQuestion(ctx context.Context, gameID, roundID string, q models.Question) (*models.Question, error) {
	if err := requireIDs("gameId", gameID, "roundId", roundID); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, validationf("%v", err)
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	m, err := s.machine(q.Type)
	if err != nil {
		return nil, err
	}

	err = s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		if game.Status != models.GameStatusEdit {
			return stalef("questions can only be added while editing (game is %s)", game.Status)
		}
		round, err := u.round(roundID)
		if err != nil {
			return err
		}
		if !compatibleTypes(round.Type, q.Type) {
			return validationf("question type %s does not fit round type %s", q.Type, round.Type)
		}
		if slices.Contains(round.Questions, q.ID) {
			return validationf("question %s is already in round %s", q.ID, roundID)
		}
		if _, err := u.question(q.ID); err == nil {
			return validationf("question %s already exists in game %s", q.ID, gameID)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		round.Questions = append(round.Questions, q.ID)

		if err := u.put(models.QuestionKey(gameID, q.ID), &q); err != nil {
			return err
		}
		if err := m.reset(u, round, &q); err != nil {
			return err
		}
		return u.saveRound(round)
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// StartGame EDIT -> START. El primer orden de turnos se sortea.
func (s *GameService) StartGame(ctx context.Context, gameID string) error {
	if err := requireIDs("gameId", gameID); err != nil {
		return err
	}

	err := s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		if !game.Status.CanTransition(models.GameStatusStart) {
			return stalef("cannot start game in status %s", game.Status)
		}
		if len(game.Teams) == 0 || len(game.Rounds) == 0 {
			return stalef("game %s needs at least one team and one round", gameID)
		}
		if err := s.shuffleChooser(u, game); err != nil {
			return err
		}
		now := u.now
		game.DateStart = &now
		game.Status = models.GameStatusStart
		if err := u.sound("game_start"); err != nil {
			return err
		}
		return u.saveGame(game)
	})
	if err != nil {
		return err
	}

	slog.Info("🚀 partida iniciada", "game", gameID)
	return nil
}

func (s *GameService) shuffleChooser(u *unit, game *models.Game) error {
	order := slices.Clone(game.Teams)
	u.rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return u.saveChooser(&models.Chooser{Order: order, Index: 0})
}

// StartRound abre una ronda concreta.
func (s *GameService) StartRound(ctx context.Context, gameID, roundID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		if game.RoundIndex(roundID) < 0 {
			return validationf("round %s does not belong to game %s", roundID, gameID)
		}
		round, err := u.round(roundID)
		if err != nil {
			return err
		}
		return s.beginRound(u, game, round)
	})
}

// NextRound abre la siguiente ronda no jugada, o termina la partida si no
// queda ninguna. Devuelve la ronda abierta, o "" si la partida terminó.
func (s *GameService) NextRound(ctx context.Context, gameID string) (string, error) {
	if err := requireIDs("gameId", gameID); err != nil {
		return "", err
	}

	var next string
	err := s.run(ctx, gameID, func(u *unit) error {
		next = ""
		game, err := u.game()
		if err != nil {
			return err
		}
		if !game.Status.CanTransition(models.GameStatusRoundStart) {
			return stalef("cannot open a round while game is %s", game.Status)
		}
		for _, roundID := range game.Rounds {
			round, err := u.round(roundID)
			if err != nil {
				return err
			}
			if !round.Ended() {
				next = roundID
				return s.beginRound(u, game, round)
			}
		}
		return s.endGame(u, game)
	})
	return next, err
}

func (s *GameService) beginRound(u *unit, game *models.Game, round *models.Round) error {
	if !game.Status.CanTransition(models.GameStatusRoundStart) {
		return stalef("cannot open a round while game is %s", game.Status)
	}
	if round.Ended() {
		return stalef("round %s already ended", round.ID)
	}

	if err := s.resetRound(u, game, round); err != nil {
		return err
	}
	now := u.now
	round.DateStart = &now
	if err := u.saveRound(round); err != nil {
		return err
	}

	if src := round.Config.OrderSourceRound; src != "" {
		if _, err := u.recomputeChooser(src, round.Config.LowestFirst); err != nil {
			return err
		}
	}
	if err := u.setAllPlayersStatus(game, models.PlayerStatusIdle); err != nil {
		return err
	}
	if err := u.resetTimer(""); err != nil {
		return err
	}
	if err := u.sound("round_start"); err != nil {
		return err
	}

	game.CurrentRound = round.ID
	game.CurrentQuestion = ""
	game.Status = models.GameStatusRoundStart
	slog.Info("ronda iniciada", "game", game.ID, "round", round.ID, "type", round.Type)
	return u.saveGame(game)
}

// resetRound devuelve la ronda y sus preguntas al estado inicial y pone su
// libro de puntos a cero. No guarda la ronda.
func (s *GameService) resetRound(u *unit, game *models.Game, round *models.Round) error {
	for _, questionID := range round.Questions {
		q, err := u.question(questionID)
		if err != nil {
			return err
		}
		m, err := s.machine(q.Type)
		if err != nil {
			return err
		}
		if err := m.reset(u, round, q); err != nil {
			return err
		}
	}
	round.CurrentQuestionIdx = -1
	round.DateStart = nil
	round.DateEnd = nil
	return u.initRoundScores(round.ID, game.Teams)
}

// NextQuestion activa la siguiente pregunta de la ronda en curso, o termina
// la ronda si no queda ninguna. Devuelve la pregunta activada, o "".
func (s *GameService) NextQuestion(ctx context.Context, gameID string) (string, error) {
	if err := requireIDs("gameId", gameID); err != nil {
		return "", err
	}

	var next string
	err := s.run(ctx, gameID, func(u *unit) error {
		next = ""
		game, err := u.game()
		if err != nil {
			return err
		}
		if game.Status != models.GameStatusRoundStart && game.Status != models.GameStatusQuestionEnd {
			return stalef("cannot move to the next question while game is %s", game.Status)
		}
		round, err := u.round(game.CurrentRound)
		if err != nil {
			return err
		}

		if round.Type == models.QuestionTypeFinale {
			left, err := u.themesLeft(round)
			if err != nil {
				return err
			}
			if left {
				return stalef("finale round %s continues with the next chosen theme", round.ID)
			}
			return s.endRound(u, game, round)
		}

		idx := round.CurrentQuestionIdx + 1
		if idx >= len(round.Questions) {
			return s.endRound(u, game, round)
		}
		next = round.Questions[idx]
		return s.startQuestion(u, game, round, idx)
	})
	return next, err
}

func (s *GameService) startQuestion(u *unit, game *models.Game, round *models.Round, idx int) error {
	round.CurrentQuestionIdx = idx
	if err := u.saveRound(round); err != nil {
		return err
	}
	q, err := u.question(round.Questions[idx])
	if err != nil {
		return err
	}
	m, err := s.machine(q.Type)
	if err != nil {
		return err
	}
	if err := m.reset(u, round, q); err != nil {
		return err
	}
	if err := m.start(u, game, round, q); err != nil {
		return err
	}
	if err := u.sound("question_start"); err != nil {
		return err
	}

	game.CurrentQuestion = q.ID
	game.Status = models.GameStatusQuestionActive
	return u.saveGame(game)
}

// EndQuestion el organizador termina la pregunta en curso.
func (s *GameService) EndQuestion(ctx context.Context, gameID, roundID, questionID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, round, q, err := u.activeQuestion(roundID, questionID)
		if err != nil {
			return err
		}
		m, err := s.machine(q.Type)
		if err != nil {
			return err
		}
		return m.end(u, game, round, q)
	})
}

// EndRound cierra la ronda en curso y la suma al libro de la partida.
func (s *GameService) EndRound(ctx context.Context, gameID string) error {
	if err := requireIDs("gameId", gameID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		if !game.Status.CanTransition(models.GameStatusRoundEnd) {
			return stalef("cannot end the round while game is %s", game.Status)
		}
		round, err := u.round(game.CurrentRound)
		if err != nil {
			return err
		}
		return s.endRound(u, game, round)
	})
}

func (s *GameService) endRound(u *unit, game *models.Game, round *models.Round) error {
	if round.Ended() {
		return stalef("round %s already ended", round.ID)
	}
	now := u.now
	round.DateEnd = &now
	if err := u.saveRound(round); err != nil {
		return err
	}
	if err := u.foldRoundScores(round.ID, game.Teams); err != nil {
		return err
	}
	if err := u.resetTimer(""); err != nil {
		return err
	}
	if err := u.sound("round_end"); err != nil {
		return err
	}

	game.CurrentQuestion = ""
	game.Status = models.GameStatusRoundEnd
	slog.Info("ronda terminada", "game", game.ID, "round", round.ID)
	return u.saveGame(game)
}

// EndGame termina la partida.
func (s *GameService) EndGame(ctx context.Context, gameID string) error {
	if err := requireIDs("gameId", gameID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		return s.endGame(u, game)
	})
}

func (s *GameService) endGame(u *unit, game *models.Game) error {
	if !game.Status.CanTransition(models.GameStatusGameEnd) {
		return stalef("cannot end the game while it is %s", game.Status)
	}
	now := u.now
	game.DateEnd = &now
	game.CurrentRound = ""
	game.CurrentQuestion = ""
	game.Status = models.GameStatusGameEnd
	if err := u.resetTimer(""); err != nil {
		return err
	}
	if err := u.sound("game_end"); err != nil {
		return err
	}
	slog.Info("🏁 partida terminada", "game", game.ID)
	return u.saveGame(game)
}

// ResetGame vuelve a START: todas las rondas, puntuaciones y el orden de
// turnos se reinician.
func (s *GameService) ResetGame(ctx context.Context, gameID string) error {
	if err := requireIDs("gameId", gameID); err != nil {
		return err
	}

	err := s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		if game.Status == models.GameStatusEdit {
			return stalef("game %s has not started", gameID)
		}

		for _, roundID := range game.Rounds {
			round, err := u.round(roundID)
			if err != nil {
				return err
			}
			if err := s.resetRound(u, game, round); err != nil {
				return err
			}
			if err := u.saveRound(round); err != nil {
				return err
			}
		}
		if err := u.put(models.GameScoresKey(gameID), models.NewGameScores(game.Teams)); err != nil {
			return err
		}
		if err := s.shuffleChooser(u, game); err != nil {
			return err
		}
		if err := u.setAllPlayersStatus(game, models.PlayerStatusIdle); err != nil {
			return err
		}
		if err := u.resetTimer(""); err != nil {
			return err
		}
		if err := u.put(models.SoundsKey(gameID), &models.SoundQueue{Events: []models.SoundEvent{}}); err != nil {
			return err
		}

		now := u.now
		game.DateStart = &now
		game.DateEnd = nil
		game.CurrentRound = ""
		game.CurrentQuestion = ""
		game.Status = models.GameStatusStart
		return u.saveGame(game)
	})
	if err != nil {
		return err
	}

	slog.Info("🔄 partida reiniciada", "game", gameID)
	return nil
}

// ResetQuestion reinicia el estado en vivo de una pregunta. Si es la
// pregunta en curso vuelve a empezar; los puntos ya ganados se conservan.
func (s *GameService) ResetQuestion(ctx context.Context, gameID, roundID, questionID string) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID); err != nil {
		return err
	}

	return s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		round, err := u.round(roundID)
		if err != nil {
			return err
		}
		if !slices.Contains(round.Questions, questionID) {
			return validationf("question %s does not belong to round %s", questionID, roundID)
		}
		q, err := u.question(questionID)
		if err != nil {
			return err
		}
		m, err := s.machine(q.Type)
		if err != nil {
			return err
		}
		if err := m.reset(u, round, q); err != nil {
			return err
		}

		current := game.CurrentRound == roundID && game.CurrentQuestion == questionID
		if !current || !game.Status.CanTransition(models.GameStatusQuestionActive) {
			return nil
		}
		if err := m.start(u, game, round, q); err != nil {
			return err
		}
		game.Status = models.GameStatusQuestionActive
		return u.saveGame(game)
	})
}

// HandleCountdownExpiry aplica el vencimiento de la cuenta atrás a la
// pregunta en curso. Con epoch > 0 solo actúa si el temporizador no se ha
// reiniciado desde entonces; un vencimiento obsoleto no hace nada.
func (s *GameService) HandleCountdownExpiry(ctx context.Context, gameID, questionID string, epoch int64) error {
	if err := requireIDs("gameId", gameID, "questionId", questionID); err != nil {
		return err
	}

	applied := false
	err := s.run(ctx, gameID, func(u *unit) error {
		applied = false
		timer, err := u.timer()
		if err != nil {
			return err
		}
		if timer.Status != models.TimerStatusRunning || (epoch > 0 && timer.Epoch != epoch) {
			return nil
		}
		game, err := u.game()
		if err != nil {
			return err
		}
		if game.Status != models.GameStatusQuestionActive || game.CurrentQuestion != questionID {
			return nil
		}
		round, err := u.round(game.CurrentRound)
		if err != nil {
			return err
		}
		q, err := u.question(questionID)
		if err != nil {
			return err
		}
		m, err := s.machine(q.Type)
		if err != nil {
			return err
		}

		if err := u.setTimerStatus(questionID, models.TimerStatusExpired); err != nil {
			return err
		}
		if err := u.sound("timer_expired"); err != nil {
			return err
		}
		applied = true
		return m.expire(u, game, round, q)
	})
	if err != nil {
		return err
	}

	if applied {
		slog.Debug("cuenta atrás vencida", "game", gameID, "question", questionID, "epoch", epoch)
	}
	return nil
}
