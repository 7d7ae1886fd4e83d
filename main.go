package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmettler27/Pop-sub001/pkg/config"
	"github.com/jmettler27/Pop-sub001/pkg/handlers"
	"github.com/jmettler27/Pop-sub001/pkg/services"
	"github.com/jmettler27/Pop-sub001/pkg/store"
	"github.com/jmettler27/Pop-sub001/pkg/websocket"
	"github.com/valyala/fasthttp"
)

var (
	engine             *services.Engine
	countdown          *services.Countdown
	hub                *websocket.Hub
	questionHandler    *handlers.QuestionHandler
	teamHandler        *handlers.TeamHandler
	gameControlHandler *handlers.GameControlHandler
	actionHandler      *handlers.ActionHandler
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("❌ configuración inválida", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	slog.Info("🚀 Iniciando servidor Pop!")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Inicializar almacenamiento
	backend, err := initStore(ctx, cfg)
	if err != nil {
		slog.Error("❌ error inicializando el almacenamiento", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	// Inicializar servicios
	initServices(ctx, cfg, backend)
	defer countdown.Close()

	// Precargar una partida si se indicó
	if cfg.SeedFile != "" {
		loadInitialGame(ctx, cfg.SeedFile, cfg.PublicURL)
	}

	// Configurar el servidor
	server := &fasthttp.Server{
		Handler: requestHandler,
		Name:    "Pop Server",
	}

	slog.Info("🎮 Servidor Pop! iniciado", "addr", cfg.HTTPAddr, "backend", cfg.StoreBackend)
	slog.Info("🔧 API Health: " + cfg.PublicURL + "/api/health")
	slog.Info("🎲 API Partidas: " + cfg.PublicURL + "/api/games")
	slog.Info("📡 WebSocket: " + cfg.PublicURL + "/ws?gameId={id}")
	slog.Info("🔄 Presiona Ctrl+C para detener el servidor")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("❌ error al iniciar el servidor", "error", err)
		}
	case <-ctx.Done():
		slog.Info("🛑 Deteniendo servidor...")
		if err := server.Shutdown(); err != nil {
			slog.Error("❌ error deteniendo el servidor", "error", err)
		}
	}
}

func initStore(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		slog.Info(fmt.Sprintf("🔌 Conectando a Redis en %s...", cfg.RedisAddr))
		return store.NewRedisBackend(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.BackendPostgres:
		slog.Info("🔌 Conectando a PostgreSQL...")
		return store.NewPostgresBackend(ctx, cfg.DatabaseURL)
	case config.BackendMemory:
		slog.Warn("⚠️ almacenamiento en memoria: las partidas se pierden al reiniciar")
		return store.NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.StoreBackend)
}

func initServices(ctx context.Context, cfg *config.Config, backend store.Backend) {
	slog.Info("⚙️  Inicializando servicios...")
	exec := store.NewExecutor(backend, cfg.TxnMaxRetries)
	engine = services.NewEngine(exec)

	// Inicializar WebSocket Hub
	hub = websocket.NewHub()
	go hub.Run(ctx)

	// Observadores de confirmaciones: avisos a pantallas y cuenta atrás
	countdown = services.NewCountdown(engine.Game)
	exec.Observe(hub.Notify)
	exec.Observe(countdown.OnCommit)

	// Inicializar handlers
	questionHandler = handlers.NewQuestionHandler(engine, cfg.StoreBackend)
	teamHandler = handlers.NewTeamHandler(engine, cfg.PublicURL)
	gameControlHandler = handlers.NewGameControlHandler(engine, hub)
	actionHandler = handlers.NewActionHandler(engine)
}

func loadInitialGame(ctx context.Context, seedFile, publicURL string) {
	game, err := engine.Game.LoadGameFromFile(ctx, seedFile)
	if err != nil {
		slog.Warn("⚠️ error cargando la partida inicial", "path", seedFile, "error", err)
		slog.Info("💡 El servidor continuará funcionando. Puedes crear partidas con POST /api/games")
		return
	}
	slog.Info("✅ Partida inicial lista", "game", game.ID, "join", publicURL+"/join/"+game.ID)
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	// Obtener la ruta solicitada
	path := string(ctx.Path())
	method := string(ctx.Method())

	start := time.Now()
	defer func() {
		slog.Info("📡 petición", "method", method, "path", path, "status", ctx.Response.StatusCode(), "duration", time.Since(start))
	}()

	// Configurar headers de respuesta
	ctx.Response.Header.Set("Server", "Pop-FastHTTP/1.0")
	ctx.Response.Header.Set("Cache-Control", "no-cache")

	// Headers CORS para desarrollo
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	// Manejar preflight requests
	if method == "OPTIONS" {
		ctx.SetStatusCode(fasthttp.StatusOK)
		return
	}

	// Enrutamiento
	switch {
	// Páginas principales
	case path == "/":
		serveEndpoints(ctx, fasthttp.StatusOK, "🎮 Pop!", "Los jugadores se unen con el enlace del código QR de cada partida.")
	case strings.HasPrefix(path, "/join/") && method == "GET":
		ctx.SetUserValue("gameId", strings.TrimPrefix(path, "/join/"))
		teamHandler.JoinPage(ctx)
	case path == "/favicon.ico":
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("🎮")

	// API Routes - Health
	case path == "/api/health":
		questionHandler.HealthCheck(ctx)

	// API Routes - Partidas
	case path == "/api/games" && method == "POST":
		gameControlHandler.CreateGame(ctx)

	// WebSocket Route
	case path == "/ws":
		gameControlHandler.HandleWebSocket(ctx)

	// API Routes - con parámetros
	case strings.HasPrefix(path, "/api/games/") && method == "GET":
		handleGameGetRoutes(ctx, path)
	case strings.HasPrefix(path, "/api/games/") && method == "POST":
		handleGamePostRoutes(ctx, path)

	default:
		serve404(ctx)
	}
}

func handleGameGetRoutes(ctx *fasthttp.RequestCtx, path string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" || parts[1] != "games" {
		serve404(ctx)
		return
	}
	ctx.SetUserValue("gameId", parts[2])

	switch {
	// /api/games/{gameId}
	case len(parts) == 3:
		gameControlHandler.GetGame(ctx)

	// /api/games/{gameId}/scores
	case len(parts) == 4 && parts[3] == "scores":
		gameControlHandler.GetScores(ctx)

	// /api/games/{gameId}/join-qr
	case len(parts) == 4 && parts[3] == "join-qr":
		teamHandler.JoinQR(ctx)

	// /api/games/{gameId}/players/{playerId}
	case len(parts) == 5 && parts[3] == "players":
		ctx.SetUserValue("playerId", parts[4])
		teamHandler.GetPlayer(ctx)

	// /api/games/{gameId}/questions/{questionId}
	case len(parts) == 5 && parts[3] == "questions":
		ctx.SetUserValue("questionId", parts[4])
		questionHandler.GetQuestion(ctx)

	// /api/games/{gameId}/rounds/{roundId}/scores
	case len(parts) == 6 && parts[3] == "rounds" && parts[5] == "scores":
		ctx.SetUserValue("roundId", parts[4])
		gameControlHandler.GetRoundScores(ctx)

	default:
		serve404(ctx)
	}
}

func handleGamePostRoutes(ctx *fasthttp.RequestCtx, path string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "games" {
		serve404(ctx)
		return
	}
	ctx.SetUserValue("gameId", parts[2])

	// /api/games/{gameId}/{operación}
	if len(parts) == 4 {
		switch parts[3] {
		case "teams":
			teamHandler.AddTeam(ctx)
		case "players":
			teamHandler.AddPlayer(ctx)
		case "rounds":
			questionHandler.AddRound(ctx)
		case "start":
			gameControlHandler.StartGame(ctx)
		case "next-round":
			gameControlHandler.NextRound(ctx)
		case "next-question":
			gameControlHandler.NextQuestion(ctx)
		case "end-round":
			gameControlHandler.EndRound(ctx)
		case "end":
			gameControlHandler.EndGame(ctx)
		case "reset":
			gameControlHandler.ResetGame(ctx)
		default:
			serve404(ctx)
		}
		return
	}

	if parts[3] != "rounds" || len(parts) < 6 {
		serve404(ctx)
		return
	}
	ctx.SetUserValue("roundId", parts[4])

	switch {
	// /api/games/{gameId}/rounds/{roundId}/start
	case len(parts) == 6 && parts[5] == "start":
		gameControlHandler.StartRound(ctx)

	// /api/games/{gameId}/rounds/{roundId}/questions
	case len(parts) == 6 && parts[5] == "questions":
		questionHandler.AddQuestion(ctx)

	// /api/games/{gameId}/rounds/{roundId}/questions/{questionId}/{action}
	case len(parts) == 8 && parts[5] == "questions":
		ctx.SetUserValue("questionId", parts[6])
		ctx.SetUserValue("action", parts[7])
		actionHandler.Action(ctx)

	default:
		serve404(ctx)
	}
}

func serve404(ctx *fasthttp.RequestCtx) {
	serveEndpoints(ctx, fasthttp.StatusNotFound, "🎮 404 - Página no encontrada", "La página que buscas no existe en este servidor.")
}

// serveEndpoints página HTML con la lista de endpoints de la API
func serveEndpoints(ctx *fasthttp.RequestCtx, status int, title, subtitle string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBodyString(`
		<!DOCTYPE html>
		<html>
		<head>
			<title>` + title + `</title>
			<style>
				body {
					font-family: Arial, sans-serif;
					background: linear-gradient(135deg, #1b1035 0%, #2d1b69 50%, #5b2a86 100%);
					color: white;
					text-align: center;
					padding: 50px;
					margin: 0;
					min-height: 100vh;
				}
				h1 { font-size: 3rem; margin-bottom: 20px; color: #ffd166; }
				p { font-size: 1.2rem; margin-bottom: 30px; color: #ccc; }
				.api-info {
					background: rgba(255, 255, 255, 0.1);
					border-radius: 10px;
					padding: 20px;
					margin-top: 20px;
					text-align: left;
				}
				.endpoint {
					background: rgba(0, 0, 0, 0.3);
					padding: 5px 10px;
					border-radius: 5px;
					margin: 5px 0;
					font-family: monospace;
				}
			</style>
		</head>
		<body>
			<h1>` + title + `</h1>
			<p>` + subtitle + `</p>
			<div class="api-info">
				<h3>🔧 Endpoints API disponibles:</h3>
				<h4>🎲 Partidas:</h4>
				<div class="endpoint">GET /api/health</div>
				<div class="endpoint">POST /api/games</div>
				<div class="endpoint">GET /api/games/{gameId}</div>
				<div class="endpoint">GET /api/games/{gameId}/scores</div>
				<div class="endpoint">GET /api/games/{gameId}/join-qr</div>
				<div class="endpoint">POST /api/games/{gameId}/teams</div>
				<div class="endpoint">POST /api/games/{gameId}/players</div>
				<div class="endpoint">GET /api/games/{gameId}/players/{playerId}</div>
				<div class="endpoint">POST /api/games/{gameId}/rounds</div>
				<div class="endpoint">POST /api/games/{gameId}/rounds/{roundId}/questions</div>
				<div class="endpoint">GET /api/games/{gameId}/questions/{questionId}</div>
				<h4>🎛️ Control:</h4>
				<div class="endpoint">POST /api/games/{gameId}/start</div>
				<div class="endpoint">POST /api/games/{gameId}/rounds/{roundId}/start</div>
				<div class="endpoint">POST /api/games/{gameId}/next-round</div>
				<div class="endpoint">POST /api/games/{gameId}/next-question</div>
				<div class="endpoint">POST /api/games/{gameId}/end-round</div>
				<div class="endpoint">POST /api/games/{gameId}/end</div>
				<div class="endpoint">POST /api/games/{gameId}/reset</div>
				<div class="endpoint">GET /api/games/{gameId}/rounds/{roundId}/scores</div>
				<h4>🔔 Acciones de pregunta:</h4>
				<div class="endpoint">POST /api/games/{gameId}/rounds/{roundId}/questions/{questionId}/{action}</div>
				<div class="endpoint">WS /ws?gameId={gameId}</div>
				<div class="endpoint">GET /join/{gameId}</div>
			</div>
		</body>
		</html>
	`)
}
