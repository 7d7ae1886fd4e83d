package services

import (
	"testing"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enumQuestion() models.Question {
	return models.Question{
		Type:  models.QuestionTypeEnum,
		Title: "Cita planetas y planetas enanos",
		Items: []string{"Mercurio", "Venus", "Tierra", "Marte", "Júpiter", "Saturno", "Urano", "Neptuno", "Plutón", "Ceres"},
	}
}

func enumFixture(t *testing.T, cfg models.RoundConfig) (*fixture, string, string) {
	t.Helper()
	f := newFixture(t, 3, 1)
	roundID, _ := f.addRound(models.QuestionTypeEnum, cfg, enumQuestion())
	f.startRound(roundID)
	return f, roundID, f.nextQuestion()
}

func TestEnumFailedChallengeRewardsOtherTeams(t *testing.T) {
	f, roundID, qID := enumFixture(t, models.RoundConfig{Reward: 10, Bonus: 5, ThinkingTimeSec: 60, ChallengeTimeSec: 120})
	a, b, c := f.teams[0], f.teams[1], f.teams[2]

	require.NoError(t, f.engine.Enum.SubmitBet(f.ctx, f.gameID, roundID, qID, a, "", 5))
	require.NoError(t, f.engine.Enum.SubmitBet(f.ctx, f.gameID, roundID, qID, b, f.players[b][0], 8))

	err := f.engine.Enum.SubmitBet(f.ctx, f.gameID, roundID, qID, a, "", 6)
	require.ErrorIs(t, err, ErrStaleState, "one bet per team")
	err = f.engine.Enum.SubmitBet(f.ctx, f.gameID, roundID, qID, c, "", 11)
	require.ErrorIs(t, err, ErrValidation, "bet above the number of items")

	require.NoError(t, f.engine.Enum.EndReflection(f.ctx, f.gameID, roundID, qID))

	var state models.EnumState
	f.realtime(qID, &state)
	assert.Equal(t, models.EnumPhaseChallenge, state.Phase)
	require.NotNil(t, state.Challenger)
	assert.Equal(t, b, state.Challenger.TeamID)
	assert.Equal(t, 8, state.Challenger.Bet)
	assert.Equal(t, models.PlayerStatusFocus, f.player(f.players[b][0]).Status)
	assert.Equal(t, models.TimerStatusRunning, f.timer().Status)

	err = f.engine.Enum.SubmitBet(f.ctx, f.gameID, roundID, qID, c, "", 3)
	require.ErrorIs(t, err, ErrStaleState, "bets are closed")

	for i := 0; i < 6; i++ {
		require.NoError(t, f.engine.Enum.IncrementCitedCount(f.ctx, f.gameID, roundID, qID))
	}
	require.NoError(t, f.engine.Enum.EndChallenge(f.ctx, f.gameID, roundID, qID))

	assert.Equal(t, map[string]int{a: 10, b: 0, c: 10}, f.roundScores(roundID))
	f.realtime(qID, &state)
	assert.Equal(t, models.EnumPhaseEnded, state.Phase)
	assert.Equal(t, 6, state.Challenger.CitedCount)
	require.NotNil(t, state.Challenger.Success)
	assert.False(t, *state.Challenger.Success)
	assert.Equal(t, models.GameStatusQuestionEnd, f.game().Status)
}

func TestEnumSuccessfulChallengeWithBonus(t *testing.T) {
	f, roundID, qID := enumFixture(t, models.RoundConfig{Reward: 10, Bonus: 5})
	a := f.teams[0]

	require.NoError(t, f.engine.Enum.SubmitBet(f.ctx, f.gameID, roundID, qID, a, "", 3))
	require.NoError(t, f.engine.Enum.EndReflection(f.ctx, f.gameID, roundID, qID))

	require.NoError(t, f.engine.Enum.ValidateItem(f.ctx, f.gameID, roundID, qID, 0))
	err := f.engine.Enum.ValidateItem(f.ctx, f.gameID, roundID, qID, 0)
	require.ErrorIs(t, err, ErrStaleState, "an item is cited once")
	require.NoError(t, f.engine.Enum.ValidateItem(f.ctx, f.gameID, roundID, qID, 4))
	require.NoError(t, f.engine.Enum.IncrementCitedCount(f.ctx, f.gameID, roundID, qID))
	require.NoError(t, f.engine.Enum.IncrementCitedCount(f.ctx, f.gameID, roundID, qID))
	require.NoError(t, f.engine.Enum.EndChallenge(f.ctx, f.gameID, roundID, qID))

	scores := f.roundScores(roundID)
	assert.Equal(t, 15, scores[a])
	assert.Equal(t, 0, scores[f.teams[1]])
	assert.Equal(t, 0, scores[f.teams[2]])
}

func TestEnumTiedBetsGoToFirstSubmitted(t *testing.T) {
	f, roundID, qID := enumFixture(t, models.RoundConfig{Reward: 10})
	a, c := f.teams[0], f.teams[2]

	require.NoError(t, f.engine.Enum.SubmitBet(f.ctx, f.gameID, roundID, qID, c, "", 4))
	require.NoError(t, f.engine.Enum.SubmitBet(f.ctx, f.gameID, roundID, qID, a, "", 4))
	require.NoError(t, f.engine.Enum.EndReflection(f.ctx, f.gameID, roundID, qID))

	var state models.EnumState
	f.realtime(qID, &state)
	require.NotNil(t, state.Challenger)
	assert.Equal(t, c, state.Challenger.TeamID)
}

func TestEnumCitingEveryItemSettles(t *testing.T) {
	f, roundID, qID := enumFixture(t, models.RoundConfig{Reward: 10, Bonus: 5})
	a := f.teams[0]

	require.NoError(t, f.engine.Enum.SubmitBet(f.ctx, f.gameID, roundID, qID, a, "", 10))
	require.NoError(t, f.engine.Enum.EndReflection(f.ctx, f.gameID, roundID, qID))
	for i := 0; i < 10; i++ {
		require.NoError(t, f.engine.Enum.IncrementCitedCount(f.ctx, f.gameID, roundID, qID))
	}

	assert.Equal(t, 10, f.roundScores(roundID)[a], "no bonus when citing exactly the bet")
	assert.Equal(t, models.GameStatusQuestionEnd, f.game().Status)
}

func TestEnumExpiryWithoutBetsEndsQuestion(t *testing.T) {
	f, _, qID := enumFixture(t, models.RoundConfig{Reward: 10, ThinkingTimeSec: 60})

	require.NoError(t, f.engine.Game.HandleCountdownExpiry(f.ctx, f.gameID, qID, f.timer().Epoch))

	var state models.EnumState
	f.realtime(qID, &state)
	assert.Equal(t, models.EnumPhaseEnded, state.Phase)
	assert.Nil(t, state.Challenger)
	assert.Equal(t, models.GameStatusQuestionEnd, f.game().Status)
}
