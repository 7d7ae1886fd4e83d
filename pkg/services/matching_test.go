package services

import (
	"testing"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchingQuestion() models.Question {
	return models.Question{
		Type:  models.QuestionTypeMatching,
		Title: "Empareja país y capital",
		Rows: [][]string{
			{"Francia", "París"},
			{"Italia", "Roma"},
		},
	}
}

func TestEvaluateMatch(t *testing.T) {
	assert.Equal(t, models.MatchCorrect, evaluateMatch([]int{1, 1}))
	assert.Equal(t, models.MatchCorrect, evaluateMatch([]int{2, 2, 2}))
	assert.Equal(t, models.MatchPartial, evaluateMatch([]int{0, 0, 2}))
	assert.Equal(t, models.MatchIncorrect, evaluateMatch([]int{0, 1}))
	assert.Equal(t, models.MatchIncorrect, evaluateMatch([]int{0, 1, 2}))
}

func TestMatchingLastRowScoresAndReordersAscending(t *testing.T) {
	f := newFixture(t, 3, 1)
	roundID, _ := f.addRound(models.QuestionTypeMatching, models.RoundConfig{Reward: 10, ThinkingTimeSec: 30}, matchingQuestion())
	f.startRound(roundID)
	qID := f.nextQuestion()

	order := f.chooser().Order
	a, b, c := order[0], order[1], order[2]

	err := f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, b, []int{0, 0})
	require.ErrorIs(t, err, ErrStaleState, "only the team with the turn submits")

	require.NoError(t, f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, a, []int{0, 0}))
	assert.Equal(t, 0, f.roundScores(roundID)[a])
	assert.Equal(t, b, f.chooser().Current())

	err = f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, b, []int{0, 0})
	require.ErrorIs(t, err, ErrStaleState, "row already matched")

	require.NoError(t, f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, b, []int{1, 1}))

	assert.Equal(t, map[string]int{a: 0, b: 10, c: 0}, f.roundScores(roundID))
	chooser := f.chooser()
	assert.Equal(t, 0, chooser.Index)
	require.Len(t, chooser.Order, 3)
	assert.ElementsMatch(t, []string{a, c}, chooser.Order[:2])
	assert.Equal(t, b, chooser.Order[2])

	var state models.MatchingState
	f.realtime(qID, &state)
	assert.True(t, state.Ended())
	assert.Len(t, state.Correct, 2)
	assert.Equal(t, models.GameStatusQuestionEnd, f.game().Status)
}

func TestMatchingTerminatesAfterEveryTeamIsEliminated(t *testing.T) {
	const teams, maxMistakes = 3, 2
	f := newFixture(t, teams, 1)
	roundID, _ := f.addRound(models.QuestionTypeMatching, models.RoundConfig{Reward: 10, MaxMistakes: maxMistakes}, matchingQuestion())
	f.startRound(roundID)
	qID := f.nextQuestion()

	submissions := 0
	for f.game().Status == models.GameStatusQuestionActive {
		require.LessOrEqual(t, submissions, teams*maxMistakes, "question must end within K×M mistakes")
		team := f.chooser().Current()
		require.NoError(t, f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, team, []int{0, 1}))
		submissions++
	}
	assert.Equal(t, teams*maxMistakes, submissions)

	var state models.MatchingState
	f.realtime(qID, &state)
	assert.True(t, state.Ended())
	assert.ElementsMatch(t, f.teams, state.Eliminated)
	for _, team := range f.teams {
		assert.Equal(t, maxMistakes, state.Mistakes[team])
		assert.Equal(t, models.PlayerStatusWrong, f.player(f.players[team][0]).Status)
	}
}

func TestMatchingSkipsEliminatedTeams(t *testing.T) {
	f := newFixture(t, 3, 1)
	q := matchingQuestion()
	q.Rows = append(q.Rows, []string{"Perú", "Lima"})
	roundID, _ := f.addRound(models.QuestionTypeMatching, models.RoundConfig{Reward: 10, MaxMistakes: 1}, q)
	f.startRound(roundID)
	qID := f.nextQuestion()

	order := f.chooser().Order
	require.NoError(t, f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, order[0], []int{0, 2}))
	require.NoError(t, f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, order[1], []int{1, 1}))
	require.NoError(t, f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, order[2], []int{2, 0}))
	// order[0] y order[2] están eliminados: el turno vuelve a order[1].
	assert.Equal(t, order[1], f.chooser().Current())

	err := f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, order[0], []int{0, 0})
	assert.ErrorIs(t, err, ErrStaleState)

	err = f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, order[1], []int{0})
	assert.ErrorIs(t, err, ErrValidation)
	err = f.engine.Matching.SubmitMatch(f.ctx, f.gameID, roundID, qID, order[1], []int{0, 5})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMatchingExpiryCountsAsMistake(t *testing.T) {
	f := newFixture(t, 2, 1)
	roundID, _ := f.addRound(models.QuestionTypeMatching, models.RoundConfig{Reward: 10, ThinkingTimeSec: 30}, matchingQuestion())
	f.startRound(roundID)
	qID := f.nextQuestion()

	first := f.chooser().Current()
	require.NoError(t, f.engine.Game.HandleCountdownExpiry(f.ctx, f.gameID, qID, f.timer().Epoch))

	var state models.MatchingState
	f.realtime(qID, &state)
	assert.Equal(t, 1, state.Mistakes[first])
	assert.Len(t, state.Incorrect, 1)
	assert.NotEqual(t, first, f.chooser().Current())
	assert.Equal(t, models.TimerStatusRunning, f.timer().Status)
}
