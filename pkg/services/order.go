package services

import (
	"slices"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

type shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// RecomputeOrder reordena los equipos por puntuación. Los empates se
// barajan en cada llamada; con ascending el peor equipo queda primero.
// Equipos sin puntuación cuentan como 0.
func RecomputeOrder(teams []string, scores map[string]int, ascending bool, rnd shuffler) []string {
	subset := make(map[string]int, len(teams))
	for _, t := range teams {
		subset[t] = scores[t]
	}

	order := make([]string, 0, len(teams))
	for _, cluster := range RankScores(subset) {
		cluster = slices.Clone(cluster)
		rnd.Shuffle(len(cluster), func(i, j int) {
			cluster[i], cluster[j] = cluster[j], cluster[i]
		})
		order = append(order, cluster...)
	}

	if ascending {
		slices.Reverse(order)
	}
	return order
}

// recomputeChooser reordena el turno global con las puntuaciones de una ronda
// y da el turno al primero.
func (u *unit) recomputeChooser(roundID string, ascending bool) (*models.Chooser, error) {
	c, err := u.chooser()
	if err != nil {
		return nil, err
	}
	rs, err := u.roundScores(roundID)
	if err != nil {
		return nil, err
	}
	c.Order = RecomputeOrder(c.Order, rs.Scores, ascending, u.rnd)
	c.Index = 0
	if err := u.saveChooser(c); err != nil {
		return nil, err
	}
	return c, nil
}
