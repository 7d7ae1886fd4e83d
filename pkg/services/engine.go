package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/jmettler27/Pop-sub001/pkg/store"
)

// lockedRand permite compartir un *rand.Rand entre goroutines.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// core dependencias compartidas por todos los servicios
type core struct {
	exec *store.Executor
	rnd  *lockedRand
	now  func() time.Time
}

// run abre una unidad sobre la partida y la confirma o reintenta.
func (c *core) run(ctx context.Context, gameID string, fn func(u *unit) error) error {
	return c.exec.Run(ctx, func(tx store.Tx) error {
		u := &unit{
			tx:     tx,
			gameID: gameID,
			now:    c.now().UTC(),
			rnd:    c.rnd,
		}
		return fn(u)
	})
}

// Option configura el motor
type Option func(*Engine)

// WithRand inyecta la fuente aleatoria (desempates y selección automática).
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.core.rnd = &lockedRand{r: r} }
}

// WithClock inyecta el reloj.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.core.now = now }
}

// Engine agrupa los servicios del juego sobre un mismo ejecutor
type Engine struct {
	core *core

	Game      *GameService
	Scores    *ScoreService
	Buzzer    *BuzzerService
	Reveal    *RevealService
	Matching  *MatchingService
	Enum      *EnumService
	OddOneOut *OddOneOutService
	Finale    *FinaleService
	Snapshots *SnapshotService
}

// NewEngine crea todos los servicios del juego
func NewEngine(exec *store.Executor, opts ...Option) *Engine {
	e := &Engine{
		core: &core{
			exec: exec,
			rnd:  &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))},
			now:  time.Now,
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	c := e.core
	e.Scores = &ScoreService{core: c}
	e.Buzzer = &BuzzerService{core: c}
	e.Reveal = &RevealService{core: c}
	e.Matching = &MatchingService{core: c}
	e.Enum = &EnumService{core: c}
	e.OddOneOut = &OddOneOutService{core: c}
	e.Finale = &FinaleService{core: c}
	e.Snapshots = &SnapshotService{core: c}

	machines := map[models.QuestionType]archetype{
		models.QuestionTypeLabelling: e.Reveal,
		models.QuestionTypeQuote:     e.Reveal,
		models.QuestionTypeMatching:  e.Matching,
		models.QuestionTypeEnum:      e.Enum,
		models.QuestionTypeOddOneOut: e.OddOneOut,
		models.QuestionTypeFinale:    e.Finale,
	}
	for _, t := range []models.QuestionType{
		models.QuestionTypeProgressiveClues, models.QuestionTypeImage, models.QuestionTypeEmoji,
		models.QuestionTypeBlindtest, models.QuestionTypeBasic,
	} {
		machines[t] = e.Buzzer
	}
	e.Game = &GameService{core: c, machines: machines}
	return e
}

// Executor expone el ejecutor para registrar observadores.
func (e *Engine) Executor() *store.Executor {
	return e.core.exec
}
