package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/jmettler27/Pop-sub001/pkg/services"
	"github.com/skip2/go-qrcode"
	"github.com/valyala/fasthttp"
)

const qrSize = 256

//go:embed templates/join.html
var templatesFS embed.FS

var joinTemplate = template.Must(template.ParseFS(templatesFS, "templates/join.html"))

// TeamHandler maneja equipos y jugadores
type TeamHandler struct {
	responder
	engine    *services.Engine
	publicURL string
}

func NewTeamHandler(engine *services.Engine, publicURL string) *TeamHandler {
	return &TeamHandler{
		engine:    engine,
		publicURL: publicURL,
	}
}

// AddTeam maneja POST /api/games/{gameId}/teams
func (h *TeamHandler) AddTeam(ctx *fasthttp.RequestCtx) {
	var req models.AddTeamRequest
	if !h.decodeBody(ctx, &req) {
		return
	}

	team, err := h.engine.Game.AddTeam(ctx, pathParam(ctx, "gameId"), req.Name, req.Color)
	if err != nil {
		h.respondWithServiceError(ctx, err, "Error añadiendo equipo")
		return
	}

	h.respondWithSuccess(ctx, team, "Equipo añadido exitosamente")
}

// AddPlayer maneja POST /api/games/{gameId}/players
func (h *TeamHandler) AddPlayer(ctx *fasthttp.RequestCtx) {
	var req models.AddPlayerRequest
	if !h.decodeBody(ctx, &req) {
		return
	}

	player, err := h.engine.Game.AddPlayer(ctx, pathParam(ctx, "gameId"), req.TeamID, req.Name)
	if err != nil {
		h.respondWithServiceError(ctx, err, "Error añadiendo jugador")
		return
	}

	h.respondWithSuccess(ctx, player, fmt.Sprintf("Bienvenido %s", player.Name))
}

// GetPlayer maneja GET /api/games/{gameId}/players/{playerId}
func (h *TeamHandler) GetPlayer(ctx *fasthttp.RequestCtx) {
	player, err := h.engine.Snapshots.Player(ctx, pathParam(ctx, "gameId"), pathParam(ctx, "playerId"))
	if err != nil {
		h.respondWithServiceError(ctx, err, "Jugador no encontrado")
		return
	}

	h.respondWithSuccess(ctx, player, "Jugador obtenido exitosamente")
}

// JoinQR maneja GET /api/games/{gameId}/join-qr: PNG con el enlace de acceso
// que se proyecta para que los jugadores se unan desde el móvil.
func (h *TeamHandler) JoinQR(ctx *fasthttp.RequestCtx) {
	gameID := pathParam(ctx, "gameId")

	var game models.Game
	if err := h.engine.Executor().Read(ctx, models.GameKey(gameID), &game); err != nil {
		h.respondWithServiceError(ctx, err, "Partida no encontrada")
		return
	}

	png, err := qrcode.Encode(h.joinURL(gameID), qrcode.Medium, qrSize)
	if err != nil {
		h.respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error generando código QR: %v", err))
		return
	}

	ctx.SetContentType("image/png")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(png)
}

// JoinPage maneja GET /join/{gameId}: la página a la que lleva el QR, con
// el formulario para elegir equipo y unirse.
func (h *TeamHandler) JoinPage(ctx *fasthttp.RequestCtx) {
	snapshot, err := h.engine.Snapshots.Game(ctx, pathParam(ctx, "gameId"))
	if err != nil {
		h.respondWithServiceError(ctx, err, "Partida no encontrada")
		return
	}

	var page bytes.Buffer
	if err := joinTemplate.Execute(&page, snapshot); err != nil {
		h.respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error generando la página: %v", err))
		return
	}

	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(page.Bytes())
}

func (h *TeamHandler) joinURL(gameID string) string {
	return h.publicURL + "/join/" + gameID
}
