package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jmettler27/Pop-sub001/pkg/models"
)

// Countdown programa el vencimiento de los temporizadores. Observa las
// confirmaciones: cada escritura de un temporizador en marcha reprograma la
// cuenta atrás de su partida, cualquier otro estado la cancela.
type Countdown struct {
	game *GameService
	now  func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingExpiry
	wg      sync.WaitGroup
	closed  bool
}

type pendingExpiry struct {
	cancel context.CancelFunc
}

func NewCountdown(game *GameService) *Countdown {
	return &Countdown{
		game:    game,
		now:     game.now,
		pending: make(map[string]*pendingExpiry),
	}
}

// OnCommit se registra con Executor.Observe.
func (c *Countdown) OnCommit(ctx context.Context, keys []string) {
	for _, key := range keys {
		gameID, ok := models.GameIDFromKey(key)
		if !ok || key != models.TimerKey(gameID) {
			continue
		}

		var timer models.Timer
		if err := c.game.exec.Read(ctx, key, &timer); err != nil {
			slog.Warn("⚠️ no se pudo leer el temporizador", "game", gameID, "error", err)
			continue
		}
		if timer.Status == models.TimerStatusRunning {
			c.schedule(gameID, timer)
		} else {
			c.cancel(gameID)
		}
	}
}

func (c *Countdown) schedule(gameID string, timer models.Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if p, ok := c.pending[gameID]; ok {
		p.cancel()
	}

	remaining := timer.Deadline().Sub(c.now())
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	p := &pendingExpiry{cancel: cancel}
	c.pending[gameID] = p

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-ctx.Done()
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}

		c.mu.Lock()
		if c.pending[gameID] == p {
			delete(c.pending, gameID)
		}
		c.mu.Unlock()
		cancel()

		err := c.game.HandleCountdownExpiry(context.Background(), gameID, timer.QuestionID, timer.Epoch)
		if err != nil {
			slog.Error("❌ error aplicando el vencimiento", "game", gameID, "question", timer.QuestionID, "error", err)
		}
	}()
}

func (c *Countdown) cancel(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[gameID]; ok {
		p.cancel()
		delete(c.pending, gameID)
	}
}

// Close cancela todas las cuentas atrás y espera a que terminen.
func (c *Countdown) Close() {
	c.mu.Lock()
	c.closed = true
	for gameID, p := range c.pending {
		p.cancel()
		delete(c.pending, gameID)
	}
	c.mu.Unlock()
	c.wg.Wait()
}
