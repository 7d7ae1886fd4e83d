package services

import "github.com/jmettler27/Pop-sub001/pkg/models"

// archetype ciclo de vida común de las máquinas de estado por tipo de pregunta.
// Todas las llamadas ocurren dentro de una unidad abierta por GameService.
type archetype interface {
	// reset escribe el estado en vivo inicial de la pregunta.
	reset(u *unit, round *models.Round, q *models.Question) error
	// start prepara la pregunta recién activada (foco, temporizador).
	start(u *unit, game *models.Game, round *models.Round, q *models.Question) error
	// expire reacciona al vencimiento de la cuenta atrás.
	expire(u *unit, game *models.Game, round *models.Round, q *models.Question) error
	// end termina la pregunta. Terminar dos veces no tiene efecto.
	end(u *unit, game *models.Game, round *models.Round, q *models.Question) error
}

func realtimeKey(u *unit, questionID string) string {
	return models.RealtimeKey(u.gameID, questionID)
}
