// Package adaptive recommends the next difficulty level from recent session
// history. The remote plan is preferred; a rule-based local fallback keeps the
// feature alive when the service is down.
package adaptive

import (
	"context"
	"log"

	"ap-tutor/api/internal/store"
	"ap-tutor/api/internal/tutor/types"
)

// Target-correctness hints fed back into simulation requests.
const (
	TargetLikelyCorrect   = "likely_correct"
	TargetBalanced        = "balanced"
	TargetLikelyIncorrect = "likely_incorrect"
)

const (
	recentWindow = 5 // sessions considered by the difficulty heuristic
	targetWindow = 6 // sessions considered by the correctness estimate
)

// RemotePlanner produces a recommendation via the inference service.
type RemotePlanner func(ctx context.Context, history []store.SessionRecord, currentDifficulty string) (*types.Recommendation, error)

type Advisor struct {
	// Remote may be nil; then only the local heuristic runs.
	Remote RemotePlanner
}

// Recommend tries the remote planner first and falls back to the local rules
// on any failure. Never returns an error: the heuristic always has an answer.
func (a *Advisor) Recommend(ctx context.Context, history []store.SessionRecord, currentDifficulty string) types.Recommendation {
	if a != nil && a.Remote != nil {
		if plan, err := a.Remote(ctx, history, currentDifficulty); err == nil && plan != nil && plan.RecommendedDifficulty != "" {
			return *plan
		} else if err != nil {
			log.Printf("adaptive: remote plan failed, using local rules: %v", err)
		}
	}
	return LocalRecommend(history, currentDifficulty)
}

// LocalRecommend is the rule-based heuristic over the 5 most recent sessions.
func LocalRecommend(history []store.SessionRecord, currentDifficulty string) types.Recommendation {
	if currentDifficulty == "" {
		currentDifficulty = types.DifficultyMedium
	}
	recent := history
	if len(recent) > recentWindow {
		recent = recent[:recentWindow]
	}

	if len(recent) == 0 {
		return types.Recommendation{
			RecommendedDifficulty: currentDifficulty,
			Reasoning:             "No session history yet. Stay at the current level until more data is collected.",
			Confidence:            0.3,
			CurrentPerformance:    types.Performance{Trend: "insufficient_data"},
			Recommendations: []string{
				"Complete a few tutor sessions to unlock adaptive guidance",
			},
		}
	}

	var sumConsistency, sumAccuracy float64
	for _, s := range recent {
		sumConsistency += s.ConsistencyScore
		if s.IsCorrect {
			sumAccuracy++
		}
	}
	avgConsistency := sumConsistency / float64(len(recent))
	avgAccuracy := sumAccuracy / float64(len(recent))

	rec := types.Recommendation{
		RecommendedDifficulty: currentDifficulty,
		Reasoning:             "Performance appropriate for current level.",
		Confidence:            0.8,
		CurrentPerformance: types.Performance{
			ConsistencyScore: avgConsistency,
			AccuracyRate:     avgAccuracy,
			Trend:            trend(history),
		},
	}

	switch {
	case avgConsistency > 0.7 && avgAccuracy > 0.8:
		rec.RecommendedDifficulty = stepUp(currentDifficulty)
		rec.Reasoning = "Excellent performance! Ready for more challenging problems."
	case avgConsistency < 0.4 || avgAccuracy < 0.5:
		rec.RecommendedDifficulty = stepDown(currentDifficulty)
		rec.Reasoning = "Struggling with current level. Moving to easier problems."
	}

	rec.Recommendations = suggestions(avgConsistency, avgAccuracy)
	return rec
}

func stepUp(d string) string {
	switch d {
	case types.DifficultyEasy:
		return types.DifficultyMedium
	case types.DifficultyMedium:
		return types.DifficultyHard
	}
	return types.DifficultyHard
}

func stepDown(d string) string {
	switch d {
	case types.DifficultyHard:
		return types.DifficultyMedium
	case types.DifficultyMedium:
		return types.DifficultyEasy
	}
	return types.DifficultyEasy
}

// trend fits a line through the last 10 consistency scores. History arrives
// newest first, so it is walked backwards.
func trend(history []store.SessionRecord) string {
	if len(history) < 3 {
		return "insufficient_data"
	}
	window := history
	if len(window) > 10 {
		window = window[:10]
	}
	n := len(window)
	var xMean, yMean float64
	for i := 0; i < n; i++ {
		xMean += float64(i)
		yMean += window[n-1-i].ConsistencyScore
	}
	xMean /= float64(n)
	yMean /= float64(n)

	var num, den float64
	for i := 0; i < n; i++ {
		dx := float64(i) - xMean
		num += dx * (window[n-1-i].ConsistencyScore - yMean)
		den += dx * dx
	}
	var slope float64
	if den != 0 {
		slope = num / den
	}
	switch {
	case slope > 0.05:
		return "improving"
	case slope < -0.05:
		return "declining"
	}
	return "stable"
}

func suggestions(consistency, accuracy float64) []string {
	var out []string
	if consistency < 0.5 {
		out = append(out, "Focus on step-by-step problem solving to improve consistency")
	}
	if accuracy < 0.6 {
		out = append(out, "Practice basic operations to improve accuracy")
	}
	if consistency > 0.8 && accuracy > 0.8 {
		out = append(out, "Excellent progress! Ready for more challenging problems")
	}
	if len(out) == 0 {
		out = append(out, "Continue with current approach - performance is on track")
	}
	return out
}

// EstimateTargetCorrectness biases the next simulation toward a likely
// outcome. Looks at the 6 most recent sessions and stays "balanced" until at
// least two exist. The value is a hint for the remote service only.
func EstimateTargetCorrectness(history []store.SessionRecord) string {
	recent := history
	if len(recent) > targetWindow {
		recent = recent[:targetWindow]
	}
	if len(recent) < 2 {
		return TargetBalanced
	}
	var passed float64
	for _, s := range recent {
		if s.IsCorrect {
			passed++
		}
	}
	rate := passed / float64(len(recent))
	switch {
	case rate >= 0.7:
		return TargetLikelyCorrect
	case rate <= 0.4:
		return TargetLikelyIncorrect
	}
	return TargetBalanced
}
