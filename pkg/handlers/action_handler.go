package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/jmettler27/Pop-sub001/pkg/services"
	"github.com/valyala/fasthttp"
)

var errUnknownAction = errors.New("unknown action")

// ActionHandler acciones de jugadores y organizador durante una pregunta
type ActionHandler struct {
	responder
	engine *services.Engine
}

func NewActionHandler(engine *services.Engine) *ActionHandler {
	return &ActionHandler{engine: engine}
}

type actionTarget struct {
	gameID     string
	roundID    string
	questionID string
}

// Action maneja POST /api/games/{gameId}/rounds/{roundId}/questions/{questionId}/{action}
func (h *ActionHandler) Action(ctx *fasthttp.RequestCtx) {
	var req models.ActionRequest
	if !h.decodeBody(ctx, &req) {
		return
	}

	action := pathParam(ctx, "action")
	t := actionTarget{
		gameID:     pathParam(ctx, "gameId"),
		roundID:    pathParam(ctx, "roundId"),
		questionID: pathParam(ctx, "questionId"),
	}

	err := h.dispatch(ctx, action, t, req)
	if errors.Is(err, errUnknownAction) {
		h.respondWithError(ctx, fasthttp.StatusNotFound, "Acción desconocida: "+action)
		return
	}
	if err != nil {
		h.respondWithServiceError(ctx, err, "Error en la acción "+action)
		return
	}

	h.respondWithSuccess(ctx, map[string]string{"action": action}, "Acción aplicada")
}

func (h *ActionHandler) dispatch(ctx context.Context, action string, t actionTarget, req models.ActionRequest) error {
	e := h.engine
	switch action {
	case "buzz", "cancel":
		return h.queueAction(ctx, action, t, req.PlayerID)

	// Buzzer
	case "validate":
		return e.Buzzer.ValidateAnswer(ctx, t.gameID, t.roundID, t.questionID, req.PlayerID)
	case "invalidate":
		return e.Buzzer.InvalidateAnswer(ctx, t.gameID, t.roundID, t.questionID, req.PlayerID)
	case "clear-queue":
		return e.Buzzer.ClearQueue(ctx, t.gameID, t.roundID, t.questionID)
	case "next-clue":
		return e.Buzzer.RevealNextClue(ctx, t.gameID, t.roundID, t.questionID)

	// Etiquetas y citas
	case "reveal":
		idx, err := requireIdx(req.Idx)
		if err != nil {
			return err
		}
		return e.Reveal.RevealElement(ctx, t.gameID, t.roundID, t.questionID, idx)
	case "validate-all":
		return e.Reveal.ValidateAll(ctx, t.gameID, t.roundID, t.questionID, req.PlayerID)

	case "match":
		return e.Matching.SubmitMatch(ctx, t.gameID, t.roundID, t.questionID, req.TeamID, req.Match)

	// Enumeración
	case "bet":
		return e.Enum.SubmitBet(ctx, t.gameID, t.roundID, t.questionID, req.TeamID, req.PlayerID, req.Bet)
	case "end-reflection":
		return e.Enum.EndReflection(ctx, t.gameID, t.roundID, t.questionID)
	case "cite":
		if req.Idx == nil {
			return e.Enum.IncrementCitedCount(ctx, t.gameID, t.roundID, t.questionID)
		}
		return e.Enum.ValidateItem(ctx, t.gameID, t.roundID, t.questionID, *req.Idx)
	case "end-challenge":
		return e.Enum.EndChallenge(ctx, t.gameID, t.roundID, t.questionID)

	case "select":
		idx, err := requireIdx(req.Idx)
		if err != nil {
			return err
		}
		return e.OddOneOut.SelectProposal(ctx, t.gameID, t.roundID, t.questionID, req.PlayerID, idx)

	// Final
	case "start-theme":
		return e.Finale.StartTheme(ctx, t.gameID, t.roundID, t.questionID)
	case "answer":
		if req.Correct == nil {
			return validationError("correct is required")
		}
		return e.Finale.SubmitAnswerOutcome(ctx, t.gameID, t.roundID, t.questionID, *req.Correct)
	case "next-section":
		return e.Finale.AdvanceSection(ctx, t.gameID, t.roundID, t.questionID)

	// Comunes
	case "end":
		return e.Game.EndQuestion(ctx, t.gameID, t.roundID, t.questionID)
	case "reset":
		return e.Game.ResetQuestion(ctx, t.gameID, t.roundID, t.questionID)
	case "expire":
		return e.Game.HandleCountdownExpiry(ctx, t.gameID, t.questionID, req.Epoch)
	case "score":
		return e.Scores.IncreaseTeamScore(ctx, t.gameID, t.roundID, t.questionID, req.TeamID, req.Delta)
	}
	return errUnknownAction
}

// queueAction entrar o salir de la cola depende del tipo de pregunta.
func (h *ActionHandler) queueAction(ctx context.Context, action string, t actionTarget, playerID string) error {
	q, _, err := h.engine.Snapshots.Question(ctx, t.gameID, t.questionID)
	if err != nil {
		return err
	}

	e := h.engine
	switch {
	case q.Type.IsBuzzer() && action == "buzz":
		return e.Buzzer.AddToQueue(ctx, t.gameID, t.roundID, t.questionID, playerID)
	case q.Type.IsBuzzer():
		return e.Buzzer.RemoveFromQueue(ctx, t.gameID, t.roundID, t.questionID, playerID)
	case q.Type.IsReveal() && action == "buzz":
		return e.Reveal.AddToQueue(ctx, t.gameID, t.roundID, t.questionID, playerID)
	case q.Type.IsReveal():
		return e.Reveal.Cancel(ctx, t.gameID, t.roundID, t.questionID, playerID)
	}
	return validationError("question type " + string(q.Type) + " has no buzzer queue")
}

func requireIdx(idx *int) (int, error) {
	if idx == nil {
		return 0, validationError("idx is required")
	}
	return *idx, nil
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", services.ErrValidation, msg)
}
