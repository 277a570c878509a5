package adaptive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"ap-tutor/api/internal/store"
	"ap-tutor/api/internal/tutor/types"
)

func sessions(n int, score float64, correct bool) []store.SessionRecord {
	out := make([]store.SessionRecord, n)
	for i := range out {
		out[i] = store.SessionRecord{ConsistencyScore: score, IsCorrect: correct}
	}
	return out
}

func TestRecommendEmptyHistory(t *testing.T) {
	rec := LocalRecommend(nil, types.DifficultyMedium)
	assert.Equal(t, types.DifficultyMedium, rec.RecommendedDifficulty)
	assert.InDelta(t, 0.3, rec.Confidence, 1e-9)
	assert.Equal(t, "insufficient_data", rec.CurrentPerformance.Trend)
}

func TestRecommendStepUp(t *testing.T) {
	rec := LocalRecommend(sessions(5, 0.9, true), types.DifficultyMedium)
	assert.Equal(t, types.DifficultyHard, rec.RecommendedDifficulty)
	assert.InDelta(t, 0.8, rec.Confidence, 1e-9)
	assert.InDelta(t, 0.9, rec.CurrentPerformance.ConsistencyScore, 1e-9)
	assert.InDelta(t, 1.0, rec.CurrentPerformance.AccuracyRate, 1e-9)

	// hard stays hard
	rec = LocalRecommend(sessions(5, 0.9, true), types.DifficultyHard)
	assert.Equal(t, types.DifficultyHard, rec.RecommendedDifficulty)
}

func TestRecommendStepDown(t *testing.T) {
	rec := LocalRecommend(sessions(5, 0.2, false), types.DifficultyHard)
	assert.Equal(t, types.DifficultyMedium, rec.RecommendedDifficulty)
	assert.InDelta(t, 0.8, rec.Confidence, 1e-9)

	// easy stays easy
	rec = LocalRecommend(sessions(5, 0.2, false), types.DifficultyEasy)
	assert.Equal(t, types.DifficultyEasy, rec.RecommendedDifficulty)
}

func TestRecommendStay(t *testing.T) {
	rec := LocalRecommend(sessions(5, 0.6, true), types.DifficultyMedium)
	assert.Equal(t, types.DifficultyMedium, rec.RecommendedDifficulty)
	assert.InDelta(t, 0.8, rec.Confidence, 1e-9)
	assert.Contains(t, rec.Reasoning, "appropriate for current level")
}

func TestRecommendWindowIsFiveSessions(t *testing.T) {
	// five strong sessions in front, garbage behind them
	history := append(sessions(5, 0.9, true), sessions(20, 0.0, false)...)
	rec := LocalRecommend(history, types.DifficultyEasy)
	assert.Equal(t, types.DifficultyMedium, rec.RecommendedDifficulty)
}

func TestRemotePlannerPreferred(t *testing.T) {
	a := &Advisor{Remote: func(context.Context, []store.SessionRecord, string) (*types.Recommendation, error) {
		return &types.Recommendation{RecommendedDifficulty: types.DifficultyHard, Confidence: 0.95}, nil
	}}
	rec := a.Recommend(context.Background(), nil, types.DifficultyMedium)
	assert.Equal(t, types.DifficultyHard, rec.RecommendedDifficulty)
	assert.InDelta(t, 0.95, rec.Confidence, 1e-9)
}

func TestRemotePlannerFailureFallsBack(t *testing.T) {
	a := &Advisor{Remote: func(context.Context, []store.SessionRecord, string) (*types.Recommendation, error) {
		return nil, errors.New("service unavailable")
	}}
	rec := a.Recommend(context.Background(), nil, types.DifficultyMedium)
	assert.Equal(t, types.DifficultyMedium, rec.RecommendedDifficulty)
	assert.InDelta(t, 0.3, rec.Confidence, 1e-9)
}

func TestEstimateTargetCorrectness(t *testing.T) {
	// single session: balanced no matter the outcome
	assert.Equal(t, TargetBalanced, EstimateTargetCorrectness(sessions(1, 1, true)))
	assert.Equal(t, TargetBalanced, EstimateTargetCorrectness(sessions(1, 0, false)))

	// 5/6 pass rate
	history := append(sessions(5, 0.8, true), sessions(1, 0.2, false)...)
	assert.Equal(t, TargetLikelyCorrect, EstimateTargetCorrectness(history))

	// 2/6 pass rate
	history = append(sessions(2, 0.8, true), sessions(4, 0.2, false)...)
	assert.Equal(t, TargetLikelyIncorrect, EstimateTargetCorrectness(history))

	// 3/6 keeps it balanced
	history = append(sessions(3, 0.8, true), sessions(3, 0.2, false)...)
	assert.Equal(t, TargetBalanced, EstimateTargetCorrectness(history))
}
