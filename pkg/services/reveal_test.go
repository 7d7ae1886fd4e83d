package services

import (
	"testing"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelling(title string) models.Question {
	return models.Question{
		Type:  models.QuestionTypeLabelling,
		Title: title,
		Elements: []models.RevealElement{
			{Label: "Aurícula", Guessable: true},
			{Label: "Ventrículo", Guessable: true},
			{Label: "Leyenda", Guessable: false},
		},
	}
}

func TestRevealElementCreditsQueueHead(t *testing.T) {
	f := newFixture(t, 2, 1)
	roundID, _ := f.addRound(models.QuestionTypeLabelling, models.RoundConfig{RewardPerElement: 5}, labelling("El corazón"))
	f.startRound(roundID)
	qID := f.nextQuestion()
	p1 := f.players[f.teams[0]][0]

	require.NoError(t, f.engine.Reveal.AddToQueue(f.ctx, f.gameID, roundID, qID, p1))
	require.NoError(t, f.engine.Reveal.RevealElement(f.ctx, f.gameID, roundID, qID, 0))
	assert.Equal(t, 5, f.roundScores(roundID)[f.teams[0]])
	assert.Equal(t, models.PlayerStatusCorrect, f.player(p1).Status)

	err := f.engine.Reveal.RevealElement(f.ctx, f.gameID, roundID, qID, 0)
	assert.ErrorIs(t, err, ErrStaleState)
	err = f.engine.Reveal.RevealElement(f.ctx, f.gameID, roundID, qID, 2)
	assert.ErrorIs(t, err, ErrValidation, "non guessable elements are not revealed")
	err = f.engine.Reveal.RevealElement(f.ctx, f.gameID, roundID, qID, 7)
	assert.ErrorIs(t, err, ErrValidation)

	// Cola vacía: se revela sin puntos y, al ser el último, la pregunta termina.
	require.NoError(t, f.engine.Reveal.RevealElement(f.ctx, f.gameID, roundID, qID, 1))
	assert.Equal(t, map[string]int{f.teams[0]: 5, f.teams[1]: 0}, f.roundScores(roundID))

	var state models.RevealState
	f.realtime(qID, &state)
	assert.True(t, state.Ended())
	assert.Len(t, state.Revealed, 2)
	assert.Equal(t, f.teams[0], state.Revealed[0].TeamID)
	assert.Empty(t, state.Revealed[1].TeamID)
	assert.Equal(t, models.GameStatusQuestionEnd, f.game().Status)
}

func TestRevealValidateAllCreditsEveryGuessable(t *testing.T) {
	f := newFixture(t, 2, 1)
	roundID, _ := f.addRound(models.QuestionTypeLabelling, models.RoundConfig{RewardPerElement: 5}, labelling("El corazón"))
	f.startRound(roundID)
	qID := f.nextQuestion()
	p1 := f.players[f.teams[0]][0]
	p2 := f.players[f.teams[1]][0]

	require.NoError(t, f.engine.Reveal.AddToQueue(f.ctx, f.gameID, roundID, qID, p2))
	require.NoError(t, f.engine.Reveal.AddToQueue(f.ctx, f.gameID, roundID, qID, p1))

	err := f.engine.Reveal.ValidateAll(f.ctx, f.gameID, roundID, qID, p1)
	require.ErrorIs(t, err, ErrStaleState)

	require.NoError(t, f.engine.Reveal.ValidateAll(f.ctx, f.gameID, roundID, qID, p2))
	assert.Equal(t, map[string]int{f.teams[0]: 0, f.teams[1]: 10}, f.roundScores(roundID))

	var state models.RevealState
	f.realtime(qID, &state)
	assert.True(t, state.Ended())
	assert.Empty(t, state.Buzzed)
	assert.Equal(t, models.PlayerStatusIdle, f.player(p1).Status)
}

func TestRevealCancelRefocusesNext(t *testing.T) {
	f := newFixture(t, 2, 1)
	roundID, _ := f.addRound(models.QuestionTypeLabelling, models.RoundConfig{RewardPerElement: 5, ThinkingTimeSec: 10}, labelling("El corazón"))
	f.startRound(roundID)
	qID := f.nextQuestion()
	p1 := f.players[f.teams[0]][0]
	p2 := f.players[f.teams[1]][0]

	require.NoError(t, f.engine.Reveal.AddToQueue(f.ctx, f.gameID, roundID, qID, p1))
	require.NoError(t, f.engine.Reveal.AddToQueue(f.ctx, f.gameID, roundID, qID, p2))
	require.NoError(t, f.engine.Reveal.Cancel(f.ctx, f.gameID, roundID, qID, p1))

	assert.Equal(t, models.PlayerStatusWrong, f.player(p1).Status)
	assert.Equal(t, models.PlayerStatusFocus, f.player(p2).Status)
	assert.Equal(t, models.TimerStatusRunning, f.timer().Status)

	require.NoError(t, f.engine.Reveal.RevealElement(f.ctx, f.gameID, roundID, qID, 1))
	assert.Equal(t, 5, f.roundScores(roundID)[f.teams[1]])
}

func TestRevealCancelEndsQuestionWhenTriesExhausted(t *testing.T) {
	f := newFixture(t, 2, 1)
	roundID, _ := f.addRound(models.QuestionTypeLabelling,
		models.RoundConfig{RewardPerElement: 5, MaxTries: 1}, labelling("El corazón"))
	f.startRound(roundID)
	qID := f.nextQuestion()
	p1 := f.players[f.teams[0]][0]
	p2 := f.players[f.teams[1]][0]

	require.NoError(t, f.engine.Reveal.AddToQueue(f.ctx, f.gameID, roundID, qID, p1))
	require.NoError(t, f.engine.Reveal.Cancel(f.ctx, f.gameID, roundID, qID, p1))

	var state models.RevealState
	f.realtime(qID, &state)
	require.False(t, state.Ended(), "p2 still has a try")

	require.NoError(t, f.engine.Reveal.AddToQueue(f.ctx, f.gameID, roundID, qID, p2))
	require.NoError(t, f.engine.Reveal.Cancel(f.ctx, f.gameID, roundID, qID, p2))

	// Nadie puede volver a pulsar: la pregunta no puede quedarse colgada.
	f.realtime(qID, &state)
	assert.True(t, state.Ended())
	assert.Empty(t, state.Buzzed)
	assert.Equal(t, models.GameStatusQuestionEnd, f.game().Status)

	err := f.engine.Reveal.AddToQueue(f.ctx, f.gameID, roundID, qID, p1)
	assert.ErrorIs(t, err, ErrStaleState)
}
