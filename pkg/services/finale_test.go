package services

import (
	"testing"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finaleTheme(title string) models.Question {
	return models.Question{
		Type:  models.QuestionTypeFinale,
		Title: title,
		Sections: []models.FinaleSection{
			{Title: "Calentamiento", Questions: []models.FinaleQuestion{
				{Title: "¿Capital de Noruega?", Answer: "Oslo"},
				{Title: "¿Capital de Suecia?", Answer: "Estocolmo"},
			}},
			{Title: "Remate", Questions: []models.FinaleQuestion{
				{Title: "¿Capital de Finlandia?", Answer: "Helsinki"},
			}},
		},
	}
}

func TestFinaleThemeScoresAndPassesTurn(t *testing.T) {
	f := newFixture(t, 2, 1)
	roundID, themes := f.addRound(models.QuestionTypeFinale, models.RoundConfig{Reward: 10, Penalty: 5, ThinkingTimeSec: 30},
		finaleTheme("Escandinavia"), finaleTheme("Bálticos"))
	f.startRound(roundID)

	_, err := f.engine.Game.NextQuestion(f.ctx, f.gameID)
	require.ErrorIs(t, err, ErrStaleState, "finale themes are chosen, not sequenced")

	order := f.chooser().Order
	first, second := order[0], order[1]

	require.NoError(t, f.engine.Finale.StartTheme(f.ctx, f.gameID, roundID, themes[0]))
	assert.Equal(t, models.GameStatusQuestionActive, f.game().Status)
	assert.Equal(t, models.PlayerStatusFocus, f.player(f.players[first][0]).Status)

	err = f.engine.Finale.StartTheme(f.ctx, f.gameID, roundID, themes[1])
	require.ErrorIs(t, err, ErrStaleState, "one theme at a time")

	require.NoError(t, f.engine.Finale.SubmitAnswerOutcome(f.ctx, f.gameID, roundID, themes[0], true))
	require.NoError(t, f.engine.Finale.SubmitAnswerOutcome(f.ctx, f.gameID, roundID, themes[0], false))

	var state models.FinaleState
	f.realtime(themes[0], &state)
	assert.Equal(t, models.FinalePhaseSectionEnd, state.Phase)
	assert.Equal(t, models.TimerStatusStopped, f.timer().Status)

	err = f.engine.Finale.SubmitAnswerOutcome(f.ctx, f.gameID, roundID, themes[0], true)
	require.ErrorIs(t, err, ErrStaleState)

	require.NoError(t, f.engine.Finale.AdvanceSection(f.ctx, f.gameID, roundID, themes[0]))
	require.NoError(t, f.engine.Finale.SubmitAnswerOutcome(f.ctx, f.gameID, roundID, themes[0], true))

	f.realtime(themes[0], &state)
	assert.True(t, state.Ended())
	assert.Equal(t, models.FinalePhaseThemeEnd, state.Phase)
	assert.Equal(t, 15, state.Score)
	assert.Len(t, state.Outcomes, 3)
	assert.Equal(t, map[string]int{first: 15, second: 0}, f.roundScores(roundID))
	assert.Equal(t, second, f.chooser().Current())
	assert.Equal(t, models.GameStatusQuestionEnd, f.game().Status)

	err = f.engine.Finale.StartTheme(f.ctx, f.gameID, roundID, themes[0])
	require.ErrorIs(t, err, ErrStaleState, "a theme is played once")

	// Terminar un tema a la fuerza no puntúa.
	require.NoError(t, f.engine.Finale.StartTheme(f.ctx, f.gameID, roundID, themes[1]))
	f.realtime(themes[1], &state)
	assert.Equal(t, second, state.TeamID)
	require.NoError(t, f.engine.Game.EndQuestion(f.ctx, f.gameID, roundID, themes[1]))
	assert.Equal(t, 0, f.roundScores(roundID)[second])

	next, err := f.engine.Game.NextQuestion(f.ctx, f.gameID)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Equal(t, models.GameStatusRoundEnd, f.game().Status)
	assert.Equal(t, 15, f.gameScores()[first])
}

func TestFinaleExpiryCountsAsWrongAnswer(t *testing.T) {
	f := newFixture(t, 1, 1)
	roundID, themes := f.addRound(models.QuestionTypeFinale, models.RoundConfig{Reward: 10, Penalty: 5, ThinkingTimeSec: 30},
		finaleTheme("Escandinavia"))
	f.startRound(roundID)
	require.NoError(t, f.engine.Finale.StartTheme(f.ctx, f.gameID, roundID, themes[0]))

	require.NoError(t, f.engine.Game.HandleCountdownExpiry(f.ctx, f.gameID, themes[0], f.timer().Epoch))

	var state models.FinaleState
	f.realtime(themes[0], &state)
	require.Len(t, state.Outcomes, 1)
	assert.False(t, state.Outcomes[0].Correct)
	assert.Equal(t, -5, state.Score)
	assert.Equal(t, 1, state.QuestionIdx)
	assert.Equal(t, models.TimerStatusRunning, f.timer().Status)
}

func TestFinaleStartThemeValidation(t *testing.T) {
	f := newFixture(t, 1, 1)
	roundID, _ := f.addRound(models.QuestionTypeFinale, models.RoundConfig{Reward: 10}, finaleTheme("Escandinavia"))
	f.startRound(roundID)

	err := f.engine.Finale.StartTheme(f.ctx, f.gameID, roundID, "otro")
	assert.ErrorIs(t, err, ErrValidation)
	err = f.engine.Finale.StartTheme(f.ctx, f.gameID, "otra", "otro")
	assert.ErrorIs(t, err, ErrStaleState)
	err = f.engine.Finale.StartTheme(f.ctx, f.gameID, roundID, "")
	assert.ErrorIs(t, err, ErrValidation)
}
