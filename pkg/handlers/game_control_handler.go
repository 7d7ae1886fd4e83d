package handlers

import (
	"context"
	"log/slog"

	"github.com/fasthttp/websocket"
	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/jmettler27/Pop-sub001/pkg/services"
	websocketHub "github.com/jmettler27/Pop-sub001/pkg/websocket"
	"github.com/valyala/fasthttp"
)

// GameControlHandler acciones del organizador sobre el ciclo de la partida
type GameControlHandler struct {
	responder
	engine *services.Engine
	hub    *websocketHub.Hub
}

func NewGameControlHandler(engine *services.Engine, hub *websocketHub.Hub) *GameControlHandler {
	return &GameControlHandler{
		engine: engine,
		hub:    hub,
	}
}

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
		return true // Permitir conexiones desde cualquier origen en desarrollo
	},
}

// HandleWebSocket maneja GET /ws?gameId={id}
func (gc *GameControlHandler) HandleWebSocket(ctx *fasthttp.RequestCtx) {
	gameID := string(ctx.QueryArgs().Peek("gameId"))
	if gameID == "" {
		gc.respondWithError(ctx, fasthttp.StatusBadRequest, "Parámetro 'gameId' es requerido")
		return
	}

	err := upgrader.Upgrade(ctx, func(ws *websocket.Conn) {
		defer ws.Close()

		gc.hub.Register(gameID, ws)
		defer gc.hub.Unregister(gameID, ws)

		// Estado actual tras registrarse: ningún cambio queda entre medias.
		// Lo escribe el hub, nunca este handler.
		snapshot, err := gc.engine.Snapshots.Game(context.Background(), gameID)
		if err == nil {
			gc.hub.SendTo(gameID, ws, "gameState", snapshot)
		} else {
			slog.Warn("⚠️ no se pudo enviar el estado inicial", "game", gameID, "error", err)
		}

		// Las pantallas solo escuchan; leer detecta el cierre
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				slog.Debug("conexión WebSocket cerrada", "game", gameID, "error", err)
				break
			}
		}
	})

	if err != nil {
		slog.Error("❌ error actualizando a WebSocket", "error", err)
		ctx.Error("Error upgrading to WebSocket", fasthttp.StatusInternalServerError)
	}
}

// CreateGame maneja POST /api/games
func (gc *GameControlHandler) CreateGame(ctx *fasthttp.RequestCtx) {
	var req models.CreateGameRequest
	if !gc.decodeBody(ctx, &req) {
		return
	}

	game, err := gc.engine.Game.CreateGame(ctx, req.Title)
	if err != nil {
		gc.respondWithServiceError(ctx, err, "Error creando partida")
		return
	}

	gc.respondWithSuccess(ctx, game, "Partida creada exitosamente")
}

// GetGame maneja GET /api/games/{gameId}
func (gc *GameControlHandler) GetGame(ctx *fasthttp.RequestCtx) {
	snapshot, err := gc.engine.Snapshots.Game(ctx, pathParam(ctx, "gameId"))
	if err != nil {
		gc.respondWithServiceError(ctx, err, "Error obteniendo partida")
		return
	}

	gc.respondWithSuccess(ctx, snapshot, "Partida obtenida exitosamente")
}

// StartGame maneja POST /api/games/{gameId}/start
func (gc *GameControlHandler) StartGame(ctx *fasthttp.RequestCtx) {
	if err := gc.engine.Game.StartGame(ctx, pathParam(ctx, "gameId")); err != nil {
		gc.respondWithServiceError(ctx, err, "Error iniciando partida")
		return
	}

	gc.respondWithSuccess(ctx, nil, "Partida iniciada exitosamente")
}

// StartRound maneja POST /api/games/{gameId}/rounds/{roundId}/start
func (gc *GameControlHandler) StartRound(ctx *fasthttp.RequestCtx) {
	roundID := pathParam(ctx, "roundId")
	if err := gc.engine.Game.StartRound(ctx, pathParam(ctx, "gameId"), roundID); err != nil {
		gc.respondWithServiceError(ctx, err, "Error iniciando ronda")
		return
	}

	gc.respondWithSuccess(ctx, map[string]string{"roundId": roundID}, "Ronda iniciada exitosamente")
}

// NextRound maneja POST /api/games/{gameId}/next-round
func (gc *GameControlHandler) NextRound(ctx *fasthttp.RequestCtx) {
	roundID, err := gc.engine.Game.NextRound(ctx, pathParam(ctx, "gameId"))
	if err != nil {
		gc.respondWithServiceError(ctx, err, "Error pasando a la siguiente ronda")
		return
	}

	if roundID == "" {
		gc.respondWithSuccess(ctx, map[string]string{}, "No quedan rondas: partida terminada")
		return
	}
	gc.respondWithSuccess(ctx, map[string]string{"roundId": roundID}, "Ronda iniciada exitosamente")
}

// NextQuestion maneja POST /api/games/{gameId}/next-question
func (gc *GameControlHandler) NextQuestion(ctx *fasthttp.RequestCtx) {
	questionID, err := gc.engine.Game.NextQuestion(ctx, pathParam(ctx, "gameId"))
	if err != nil {
		gc.respondWithServiceError(ctx, err, "Error pasando a la siguiente pregunta")
		return
	}

	if questionID == "" {
		gc.respondWithSuccess(ctx, map[string]string{}, "No quedan preguntas: ronda terminada")
		return
	}
	gc.respondWithSuccess(ctx, map[string]string{"questionId": questionID}, "Pregunta iniciada exitosamente")
}

// EndRound maneja POST /api/games/{gameId}/end-round
func (gc *GameControlHandler) EndRound(ctx *fasthttp.RequestCtx) {
	if err := gc.engine.Game.EndRound(ctx, pathParam(ctx, "gameId")); err != nil {
		gc.respondWithServiceError(ctx, err, "Error terminando ronda")
		return
	}

	gc.respondWithSuccess(ctx, nil, "Ronda terminada exitosamente")
}

// EndGame maneja POST /api/games/{gameId}/end
func (gc *GameControlHandler) EndGame(ctx *fasthttp.RequestCtx) {
	if err := gc.engine.Game.EndGame(ctx, pathParam(ctx, "gameId")); err != nil {
		gc.respondWithServiceError(ctx, err, "Error terminando partida")
		return
	}

	gc.respondWithSuccess(ctx, nil, "Partida terminada exitosamente")
}

// ResetGame maneja POST /api/games/{gameId}/reset
func (gc *GameControlHandler) ResetGame(ctx *fasthttp.RequestCtx) {
	if err := gc.engine.Game.ResetGame(ctx, pathParam(ctx, "gameId")); err != nil {
		gc.respondWithServiceError(ctx, err, "Error reiniciando partida")
		return
	}

	gc.respondWithSuccess(ctx, nil, "Partida reiniciada exitosamente")
}

// GetScores maneja GET /api/games/{gameId}/scores
func (gc *GameControlHandler) GetScores(ctx *fasthttp.RequestCtx) {
	scores, err := gc.engine.Scores.GameScores(ctx, pathParam(ctx, "gameId"))
	if err != nil {
		gc.respondWithServiceError(ctx, err, "Error obteniendo puntuaciones")
		return
	}

	gc.respondWithSuccess(ctx, scores, "Puntuaciones obtenidas exitosamente")
}

// GetRoundScores maneja GET /api/games/{gameId}/rounds/{roundId}/scores
func (gc *GameControlHandler) GetRoundScores(ctx *fasthttp.RequestCtx) {
	scores, err := gc.engine.Scores.RoundScores(ctx, pathParam(ctx, "gameId"), pathParam(ctx, "roundId"))
	if err != nil {
		gc.respondWithServiceError(ctx, err, "Error obteniendo puntuaciones de la ronda")
		return
	}

	gc.respondWithSuccess(ctx, scores, "Puntuaciones obtenidas exitosamente")
}
