package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/jmettler27/Pop-sub001/pkg/store"
)

// ScoreService libro de puntos por ronda y por partida
type ScoreService struct {
	*core
}

// IncreaseTeamScore ajuste manual del organizador; delta puede ser negativo.
func (s *ScoreService) IncreaseTeamScore(ctx context.Context, gameID, roundID, questionID, teamID string, delta int) error {
	if err := requireIDs("gameId", gameID, "roundId", roundID, "questionId", questionID, "teamId", teamID); err != nil {
		return err
	}

	err := s.run(ctx, gameID, func(u *unit) error {
		game, err := u.game()
		if err != nil {
			return err
		}
		if !slices.Contains(game.Teams, teamID) {
			return validationf("team %s does not play in game %s", teamID, gameID)
		}
		if game.RoundIndex(roundID) < 0 {
			return validationf("round %s does not belong to game %s", roundID, gameID)
		}
		return u.increaseTeamScore(roundID, questionID, teamID, delta)
	})
	if err != nil {
		return err
	}

	slog.Info("puntuación ajustada", "game", gameID, "round", roundID, "team", teamID, "delta", delta)
	return nil
}

// RoundScores lectura fuera de unidad.
func (s *ScoreService) RoundScores(ctx context.Context, gameID, roundID string) (*models.RoundScores, error) {
	var rs models.RoundScores
	if err := s.exec.Read(ctx, models.RoundScoresKey(gameID, roundID), &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// GameScores lectura fuera de unidad.
func (s *ScoreService) GameScores(ctx context.Context, gameID string) (*models.GameScores, error) {
	var gs models.GameScores
	if err := s.exec.Read(ctx, models.GameScoresKey(gameID), &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (u *unit) roundScores(roundID string) (*models.RoundScores, error) {
	rs, err := get[models.RoundScores](u, models.RoundScoresKey(u.gameID, roundID))
	if errors.Is(err, store.ErrNotFound) {
		return models.NewRoundScores(roundID, nil), nil
	}
	if err != nil {
		return nil, err
	}
	if rs.Scores == nil {
		rs.Scores = map[string]int{}
	}
	if rs.Progress == nil {
		rs.Progress = map[string]map[string]int{}
	}
	return rs, nil
}

func (u *unit) saveRoundScores(rs *models.RoundScores) error {
	rs.Ranking = RankScores(rs.Scores)
	return u.put(models.RoundScoresKey(u.gameID, rs.RoundID), rs)
}

func (u *unit) increaseTeamScore(roundID, questionID, teamID string, delta int) error {
	rs, err := u.roundScores(roundID)
	if err != nil {
		return err
	}
	rs.Scores[teamID] += delta
	if rs.Progress[teamID] == nil {
		rs.Progress[teamID] = map[string]int{}
	}
	rs.Progress[teamID][questionID] = rs.Scores[teamID]
	return u.saveRoundScores(rs)
}

// recordProgress fija el acumulado de cada equipo tras la pregunta.
func (u *unit) recordProgress(roundID, questionID string, teams []string) error {
	rs, err := u.roundScores(roundID)
	if err != nil {
		return err
	}
	for _, t := range teams {
		if rs.Progress[t] == nil {
			rs.Progress[t] = map[string]int{}
		}
		rs.Progress[t][questionID] = rs.Scores[t]
	}
	return u.saveRoundScores(rs)
}

func (u *unit) initRoundScores(roundID string, teams []string) error {
	return u.saveRoundScores(models.NewRoundScores(roundID, teams))
}

// foldRoundScores suma la ronda al libro de la partida. Se llama una sola vez
// por ronda, al terminarla.
func (u *unit) foldRoundScores(roundID string, teams []string) error {
	rs, err := u.roundScores(roundID)
	if err != nil {
		return err
	}
	gs, err := get[models.GameScores](u, models.GameScoresKey(u.gameID))
	if errors.Is(err, store.ErrNotFound) {
		gs = models.NewGameScores(teams)
	} else if err != nil {
		return err
	}
	if gs.Scores == nil {
		gs.Scores = map[string]int{}
	}
	if gs.Progress == nil {
		gs.Progress = map[string]map[string]int{}
	}

	for _, t := range teams {
		gs.Scores[t] += rs.Scores[t]
		if gs.Progress[t] == nil {
			gs.Progress[t] = map[string]int{}
		}
		gs.Progress[t][roundID] = gs.Scores[t]
	}
	gs.Ranking = RankScores(gs.Scores)
	return u.put(models.GameScoresKey(u.gameID), gs)
}

// RankScores agrupa equipos empatados, de mayor a menor puntuación. Dentro
// de cada grupo los equipos van ordenados por id.
func RankScores(scores map[string]int) [][]string {
	byScore := make(map[int][]string)
	for team, score := range scores {
		byScore[score] = append(byScore[score], team)
	}

	values := make([]int, 0, len(byScore))
	for score := range byScore {
		values = append(values, score)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	ranking := make([][]string, 0, len(values))
	for _, score := range values {
		cluster := byScore[score]
		sort.Strings(cluster)
		ranking = append(ranking, cluster)
	}
	return ranking
}
