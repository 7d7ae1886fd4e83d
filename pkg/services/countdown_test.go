package services

import (
	"testing"
	"time"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCountdownExpiryIgnoresStaleEpoch(t *testing.T) {
	cfg := models.RoundConfig{Reward: 10, ThinkingTimeSec: 20}
	f, roundID, qID := buzzerFixture(t, 2, 1, cfg, models.Question{Title: "¿Capital de Australia?"})
	p1 := f.players[f.teams[0]][0]
	p2 := f.players[f.teams[1]][0]

	require.NoError(t, f.engine.Buzzer.AddToQueue(f.ctx, f.gameID, roundID, qID, p1))
	require.NoError(t, f.engine.Buzzer.AddToQueue(f.ctx, f.gameID, roundID, qID, p2))
	epoch := f.timer().Epoch

	// Un vencimiento programado antes del último arranque no hace nada.
	require.NoError(t, f.engine.Game.HandleCountdownExpiry(f.ctx, f.gameID, qID, epoch-1))
	var state models.BuzzerState
	f.realtime(qID, &state)
	assert.Equal(t, []string{p1, p2}, state.Buzzed)
	assert.Equal(t, models.PlayerStatusFocus, f.player(p1).Status)

	// Tampoco para una pregunta que no está en curso.
	require.NoError(t, f.engine.Game.HandleCountdownExpiry(f.ctx, f.gameID, "otra", epoch))
	f.realtime(qID, &state)
	assert.Equal(t, []string{p1, p2}, state.Buzzed)

	require.NoError(t, f.engine.Game.HandleCountdownExpiry(f.ctx, f.gameID, qID, epoch))
	f.realtime(qID, &state)
	assert.Equal(t, []string{p2}, state.Buzzed)
	assert.Equal(t, models.PlayerStatusWrong, f.player(p1).Status)
	assert.Equal(t, models.PlayerStatusFocus, f.player(p2).Status)
	assert.Greater(t, f.timer().Epoch, epoch)

	// Repetir el mismo vencimiento no cancela al siguiente.
	require.NoError(t, f.engine.Game.HandleCountdownExpiry(f.ctx, f.gameID, qID, epoch))
	f.realtime(qID, &state)
	assert.Equal(t, []string{p2}, state.Buzzed)
}

func TestHandleCountdownExpiryWithoutRunningTimerIsNoop(t *testing.T) {
	f, _, qID := buzzerFixture(t, 1, 1, models.RoundConfig{Reward: 10, ThinkingTimeSec: 20}, models.Question{Title: "¿Capital de Canadá?"})

	// Sin temporizador en marcha no hay nada que vencer.
	require.NoError(t, f.engine.Game.HandleCountdownExpiry(f.ctx, f.gameID, qID, 0))
	assert.Equal(t, models.TimerStatusReset, f.timer().Status)
	assert.Equal(t, models.GameStatusQuestionActive, f.game().Status)
}

func TestCountdownExpiresBuzzerHead(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a real countdown")
	}

	cfg := models.RoundConfig{Reward: 10, ThinkingTimeSec: 1}
	f, roundID, qID := buzzerFixture(t, 2, 1, cfg, models.Question{Title: "¿Capital de Nueva Zelanda?"})
	countdown := NewCountdown(f.engine.Game)
	f.engine.Executor().Observe(countdown.OnCommit)
	defer countdown.Close()

	p1 := f.players[f.teams[0]][0]
	require.NoError(t, f.engine.Buzzer.AddToQueue(f.ctx, f.gameID, roundID, qID, p1))

	require.Eventually(t, func() bool {
		return f.player(p1).Status == models.PlayerStatusWrong
	}, 5*time.Second, 20*time.Millisecond)

	var state models.BuzzerState
	f.realtime(qID, &state)
	assert.Empty(t, state.Buzzed)
	require.Len(t, state.Canceled, 1)
	assert.Equal(t, p1, state.Canceled[0].PlayerID)
	assert.Equal(t, models.TimerStatusReset, f.timer().Status)
}

func TestCountdownCancelsWhenTimerStops(t *testing.T) {
	cfg := models.RoundConfig{Reward: 10, ThinkingTimeSec: 30}
	f, roundID, qID := buzzerFixture(t, 2, 1, cfg, models.Question{Title: "¿Capital de Islandia?"})
	countdown := NewCountdown(f.engine.Game)
	f.engine.Executor().Observe(countdown.OnCommit)
	defer countdown.Close()

	p1 := f.players[f.teams[0]][0]
	require.NoError(t, f.engine.Buzzer.AddToQueue(f.ctx, f.gameID, roundID, qID, p1))

	countdown.mu.Lock()
	_, scheduled := countdown.pending[f.gameID]
	countdown.mu.Unlock()
	assert.True(t, scheduled)

	require.NoError(t, f.engine.Buzzer.ValidateAnswer(f.ctx, f.gameID, roundID, qID, p1))

	countdown.mu.Lock()
	_, scheduled = countdown.pending[f.gameID]
	countdown.mu.Unlock()
	assert.False(t, scheduled, "a stopped timer cancels the countdown")
}
