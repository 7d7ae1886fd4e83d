package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/jmettler27/Pop-sub001/pkg/services"
	"github.com/valyala/fasthttp"
)

// QuestionHandler maneja las peticiones HTTP para rondas y preguntas
type QuestionHandler struct {
	responder
	engine  *services.Engine
	backend string
}

// NewQuestionHandler crea una nueva instancia del handler
func NewQuestionHandler(engine *services.Engine, backend string) *QuestionHandler {
	return &QuestionHandler{
		engine:  engine,
		backend: backend,
	}
}

// AddRound maneja POST /api/games/{gameId}/rounds
func (h *QuestionHandler) AddRound(ctx *fasthttp.RequestCtx) {
	var req models.AddRoundRequest
	if !h.decodeBody(ctx, &req) {
		return
	}

	round, err := h.engine.Game.AddRound(ctx, pathParam(ctx, "gameId"), req.Title, req.Type, req.Config)
	if err != nil {
		h.respondWithServiceError(ctx, err, "Error añadiendo ronda")
		return
	}

	h.respondWithSuccess(ctx, round, "Ronda añadida exitosamente")
}

// AddQuestion maneja POST /api/games/{gameId}/rounds/{roundId}/questions
func (h *QuestionHandler) AddQuestion(ctx *fasthttp.RequestCtx) {
	var req models.Question
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	question, err := h.engine.Game.AddQuestion(ctx, pathParam(ctx, "gameId"), pathParam(ctx, "roundId"), req)
	if err != nil {
		h.respondWithServiceError(ctx, err, "Error añadiendo pregunta")
		return
	}

	h.respondWithSuccess(ctx, question, "Pregunta añadida exitosamente")
}

// GetQuestion maneja GET /api/games/{gameId}/questions/{questionId}
func (h *QuestionHandler) GetQuestion(ctx *fasthttp.RequestCtx) {
	question, realtime, err := h.engine.Snapshots.Question(ctx, pathParam(ctx, "gameId"), pathParam(ctx, "questionId"))
	if err != nil {
		h.respondWithServiceError(ctx, err, "Pregunta no encontrada")
		return
	}

	h.respondWithSuccess(ctx, map[string]interface{}{
		"question": question,
		"realtime": realtime,
	}, "Pregunta obtenida exitosamente")
}

// HealthCheck maneja GET /api/health
func (h *QuestionHandler) HealthCheck(ctx *fasthttp.RequestCtx) {
	err := h.engine.Executor().HealthCheck(ctx)
	if err != nil {
		h.respondWithError(ctx, fasthttp.StatusServiceUnavailable, fmt.Sprintf("Servicio no disponible: %v", err))
		return
	}

	h.respondWithSuccess(ctx, map[string]interface{}{
		"status":  "healthy",
		"backend": h.backend,
	}, "Servicio funcionando correctamente")
}
