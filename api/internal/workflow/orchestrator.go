// Package workflow coordinates the tutoring pipeline: cache resolution, the
// forced-refresh retry, the legacy fallback chain, the quick-check judgement
// and the session commit.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ap-tutor/api/internal/adaptive"
	"ap-tutor/api/internal/answer"
	"ap-tutor/api/internal/cache"
	"ap-tutor/api/internal/store"
	"ap-tutor/api/internal/tutor"
	"ap-tutor/api/internal/tutor/types"
)

// Error taxonomy. RemoteCall and IncompleteResult are handled internally by
// retry/fallback and only surface when every strategy is exhausted;
// MissingInput is fatal immediately, before any remote call.
var (
	ErrRemoteCall       = errors.New("remote call failed")
	ErrIncompleteResult = errors.New("pipeline result incomplete")
	ErrMissingInput     = errors.New("missing required input")
)

type Orchestrator struct {
	Engine   tutor.Engine
	Cache    *cache.Cache
	Sessions *store.SessionRepo
}

func New(engine tutor.Engine, c *cache.Cache, sessions *store.SessionRepo) *Orchestrator {
	return &Orchestrator{Engine: engine, Cache: c, Sessions: sessions}
}

type RunOptions struct {
	ForceRefresh bool
}

// RunFull resolves the request through the cache, retries once with a forced
// refresh when the result fails or misses required stages, and as a last
// resort recomposes the result from the legacy single-stage endpoints.
// No partial result is ever returned: the error path is all-or-nothing.
func (o *Orchestrator) RunFull(ctx context.Context, req types.PipelineRequest, opts RunOptions) (*types.PipelineResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingInput, err)
	}
	required := types.RequiredStages(req.WorkflowType)

	fetch := func(ctx context.Context) (*types.PipelineResult, error) {
		res, err := o.Engine.RunPipeline(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRemoteCall, err)
		}
		return res, nil
	}

	var partial *types.PipelineResult

	res, err := o.Cache.Resolve(ctx, req, opts.ForceRefresh, fetch)
	if err == nil && res.HasStages(required...) {
		return res, nil
	}
	if err != nil {
		log.Printf("workflow: primary pipeline failed, retrying with refresh: %v", err)
	} else {
		partial = res
		log.Printf("workflow: cached result incomplete for %s, retrying with refresh", req.WorkflowType)
	}

	// ровно один forced-refresh retry
	res, err = o.Cache.Resolve(ctx, req, true, fetch)
	if err == nil && res.HasStages(required...) {
		return res, nil
	}
	if err == nil {
		partial = res
		err = fmt.Errorf("%w: workflow %s missing %v", ErrIncompleteResult, req.WorkflowType, required)
	}
	log.Printf("workflow: forced refresh did not recover (%v), falling back to legacy calls", err)

	res, ferr := o.legacyFallback(ctx, req, partial)
	if ferr != nil {
		return nil, fmt.Errorf("legacy fallback after %v: %w", err, ferr)
	}
	// synthetic result supersedes whatever incomplete entry was cached
	o.Cache.Put(ctx, cache.Fingerprint(req), res)
	return res, nil
}

// legacyFallback recomposes a PipelineResult from the single-purpose
// endpoints. The chain is an explicit ordered list tried in sequence;
// consistency validation is best-effort and never fails the chain.
func (o *Orchestrator) legacyFallback(ctx context.Context, req types.PipelineRequest, partial *types.PipelineResult) (*types.PipelineResult, error) {
	res := &types.PipelineResult{
		WorkflowType: req.WorkflowType,
		CurrentStep:  types.StepInitialized,
		Metadata: types.ResultMetadata{
			GradeLevel:  req.GradeLevel,
			Difficulty:  req.Difficulty,
			Disability:  req.Disability,
			CacheStatus: map[string]bool{},
		},
	}
	// keep whatever complete stages the partial run produced
	if partial != nil {
		res.Results = partial.Results
	}

	problemText := req.Problem.Text
	if req.Problem.Data != nil && res.Results.GeneratedProblem == nil {
		res.Results.GeneratedProblem = req.Problem.Data
	}
	if problemText == "" && res.Results.GeneratedProblem != nil {
		problemText = res.Results.GeneratedProblem.Problem
	}
	if problemText == "" {
		gp, err := o.Engine.GenerateProblem(ctx, req.GradeLevel, req.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("%w: generate-problem: %v", ErrRemoteCall, err)
		}
		res.Results.GeneratedProblem = gp
		res.Metadata.CacheStatus[types.StageGeneratedProblem] = false
		problemText = gp.Problem
	}
	res.CurrentStep = types.StepProblemGenerated
	if req.WorkflowType == types.WorkflowProblemOnly {
		res.CurrentStep = types.StepCompleted
		return res, nil
	}

	expected := ""
	if res.Results.GeneratedProblem != nil {
		expected = res.Results.GeneratedProblem.Answer
	}
	target, _ := req.Metadata["target_correctness"].(string)

	chain := []struct {
		name string
		skip func() bool
		run  func(ctx context.Context) error
	}{
		{
			name: types.StageStudentSimulation,
			skip: func() bool { return res.Results.StudentSimulation != nil },
			run: func(ctx context.Context) error {
				sim, err := o.Engine.SimulateStudent(ctx, tutor.SimulateInput{
					Disability:        req.Disability,
					Problem:           problemText,
					TargetCorrectness: target,
					ExpectedAnswer:    expected,
				})
				if err != nil {
					return err
				}
				res.Results.StudentSimulation = sim
				res.CurrentStep = types.StepStudentSimulated
				return nil
			},
		},
		{
			name: types.StageThoughtAnalysis,
			skip: func() bool { return res.Results.ThoughtAnalysis != nil },
			run: func(ctx context.Context) error {
				thought, err := o.Engine.AnalyzeThought(ctx, tutor.AnalyzeInput{
					Disability: req.Disability,
					Problem:    problemText,
					Attempt:    res.Results.StudentSimulation,
				})
				if err != nil {
					return err
				}
				res.Results.ThoughtAnalysis = thought
				res.CurrentStep = types.StepThoughtAnalyzed
				return nil
			},
		},
		{
			name: types.StageTutorSession,
			skip: func() bool {
				if res.Results.TutorSession != nil {
					return true
				}
				// pre-tutor and analysis-only stop before the dialogue
				return req.WorkflowType == types.WorkflowPreTutor ||
					req.WorkflowType == types.WorkflowAnalysisOnly
			},
			run: func(ctx context.Context) error {
				session, err := o.Engine.GenerateTutor(ctx, tutor.TutorInput{
					Disability: req.Disability,
					Problem:    problemText,
					Attempt:    res.Results.StudentSimulation,
					Thought:    res.Results.ThoughtAnalysis,
				})
				if err != nil {
					return err
				}
				res.Results.TutorSession = session
				res.CurrentStep = types.StepTutorSimulated
				return nil
			},
		},
	}

	for _, step := range chain {
		if step.skip() {
			continue
		}
		if err := step.run(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRemoteCall, step.name, err)
		}
		res.Metadata.CacheStatus[step.name] = false
	}

	// consistency — не критично: при ошибке просто остаёмся без отчёта
	if res.Results.ConsistencyValidation == nil && res.Results.StudentSimulation != nil &&
		req.WorkflowType != types.WorkflowProblemOnly {
		report, err := o.Engine.ValidateConsistency(ctx, tutor.ConsistencyInput{
			Disability:     req.Disability,
			Problem:        problemText,
			ExpectedAnswer: expected,
			Attempt:        res.Results.StudentSimulation,
		})
		if err != nil {
			log.Printf("workflow: consistency validation skipped: %v", err)
		} else {
			res.Results.ConsistencyValidation = report
			res.CurrentStep = types.StepConsistencyValidated
		}
	}

	if !res.HasStages(types.RequiredStages(req.WorkflowType)...) {
		return nil, fmt.Errorf("%w: legacy chain left workflow %s incomplete", ErrIncompleteResult, req.WorkflowType)
	}
	res.CurrentStep = types.StepCompleted
	return res, nil
}

// improvementSuffix augments the base fingerprint for the derived strategies
// analysis, so it occupies its own cache slot next to the pipeline result.
const improvementSuffix = "|improvement"

// RunImprovement derives the improvement-focused teaching strategies for a
// completed run. Results land under the base fingerprint plus a stage suffix:
// a forced refresh of the base result leaves the derived analysis warm.
func (o *Orchestrator) RunImprovement(ctx context.Context, req types.PipelineRequest, res *types.PipelineResult) (*types.TeachingStrategies, error) {
	if res == nil || res.Results.StudentSimulation == nil {
		return nil, fmt.Errorf("%w: student simulation", ErrMissingInput)
	}
	if s := res.Results.TeachingStrategies; s != nil {
		return s, nil
	}

	problem := req.Problem.Text
	if problem == "" && res.Results.GeneratedProblem != nil {
		problem = res.Results.GeneratedProblem.Problem
	}

	key := cache.Fingerprint(req) + improvementSuffix
	derived, err := o.Cache.ResolveKey(ctx, key, false, func(ctx context.Context) (*types.PipelineResult, error) {
		strategies, err := o.Engine.GenerateStrategies(ctx, tutor.StrategiesInput{
			Disability: req.Disability,
			Problem:    problem,
			Attempt:    res.Results.StudentSimulation,
			Thought:    res.Results.ThoughtAnalysis,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: generate-strategies: %v", ErrRemoteCall, err)
		}
		return &types.PipelineResult{
			WorkflowType: req.WorkflowType,
			CurrentStep:  types.StepStrategiesGenerated,
			Results:      types.StageResults{TeachingStrategies: strategies},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if derived.Results.TeachingStrategies == nil {
		return nil, fmt.Errorf("%w: teaching strategies", ErrIncompleteResult)
	}
	return derived.Results.TeachingStrategies, nil
}

// QuickCheckResult is the correctness judgement of one tutoring run.
type QuickCheckResult struct {
	Passed         bool                     `json:"passed"`
	StudentAnswer  string                   `json:"student_answer,omitempty"`
	ExpectedAnswer string                   `json:"expected_answer,omitempty"`
	TestAttempt    *types.StudentSimulation `json:"test_attempt,omitempty"`

	// Source names the policy that decided: "quick_check",
	// "answer_recheck" or "consistency".
	Source string `json:"source"`
}

// RunQuickCheck judges correctness for a completed run. Policy, in order:
// the tutor's test question when present; else a re-check of the original
// problem's expected answer against the simulation; else the consistency
// threshold. A run with no checkable answer fails the check, it does not
// error.
func (o *Orchestrator) RunQuickCheck(ctx context.Context, res *types.PipelineResult, req types.PipelineRequest) (QuickCheckResult, error) {
	if res == nil || res.Results.TutorSession == nil {
		return QuickCheckResult{}, fmt.Errorf("%w: tutor session", ErrMissingInput)
	}
	session := res.Results.TutorSession

	if q := strings.TrimSpace(session.TestQuestion); q != "" {
		testReq := req.WithProblem(q)
		testReq.WorkflowType = types.WorkflowPreTutor

		testRes, err := o.RunFull(ctx, testReq, RunOptions{})
		if err != nil {
			return QuickCheckResult{}, err
		}
		attempt := testRes.Results.StudentSimulation
		studentAnswer := answer.ExtractFinalAnswer(attempt)
		expected := strings.TrimSpace(session.ExpectedAnswer)

		// no checkable answer => automatic fail, not an error
		passed := expected != "" && studentAnswer != "" && answer.Compare(studentAnswer, expected)
		return QuickCheckResult{
			Passed:         passed,
			StudentAnswer:  studentAnswer,
			ExpectedAnswer: expected,
			TestAttempt:    attempt,
			Source:         "quick_check",
		}, nil
	}

	if gp := res.Results.GeneratedProblem; gp != nil && strings.TrimSpace(gp.Answer) != "" {
		studentAnswer := answer.ExtractFinalAnswer(res.Results.StudentSimulation)
		return QuickCheckResult{
			Passed:         studentAnswer != "" && answer.Compare(studentAnswer, gp.Answer),
			StudentAnswer:  studentAnswer,
			ExpectedAnswer: gp.Answer,
			Source:         "answer_recheck",
		}, nil
	}

	var score float64
	var flagged bool
	if c := res.Results.ConsistencyValidation; c != nil {
		score = c.OverallConsistencyScore
		flagged = len(c.Flags) > 0
	}
	return QuickCheckResult{
		Passed: score >= 0.7 && !flagged,
		Source: "consistency",
	}, nil
}

// CommitSession persists the record for a completed run. Called exactly once
// per run; the orchestrator does not deduplicate by fingerprint.
func (o *Orchestrator) CommitSession(
	ctx context.Context,
	req types.PipelineRequest,
	res *types.PipelineResult,
	qc QuickCheckResult,
	startedAt time.Time,
) (store.SessionRecord, error) {
	if res == nil || res.Results.TutorSession == nil {
		return store.SessionRecord{}, fmt.Errorf("%w: cannot commit without a tutor session", ErrMissingInput)
	}

	var score float64
	if c := res.Results.ConsistencyValidation; c != nil {
		score = c.OverallConsistencyScore
	}
	problem := req.Problem
	if problem.IsEmpty() && res.Results.GeneratedProblem != nil {
		problem = types.ProblemRef{Data: res.Results.GeneratedProblem, Text: res.Results.GeneratedProblem.Problem}
	}

	rec := store.SessionRecord{
		Disability:         req.Disability,
		GradeLevel:         req.GradeLevel,
		Difficulty:         req.Difficulty,
		Problem:            problem,
		StudentAttempt:     res.Results.StudentSimulation,
		Diagnosis:          res.Results.ThoughtAnalysis,
		TutorResponse:      res.Results.TutorSession,
		TestAttempt:        qc.TestAttempt,
		ConsistencyResults: res.Results.ConsistencyValidation,
		ConsistencyScore:   score,
		IsCorrect:          qc.Passed,
		HasTestQuestion:    strings.TrimSpace(res.Results.TutorSession.TestQuestion) != "",
		DurationSeconds:    int(time.Since(startedAt).Seconds()),
		CacheStatus:        res.Metadata.CacheStatus,
	}
	return o.Sessions.SaveSession(ctx, rec)
}

// RunSession is the end-to-end path the front-ends use: resolve, judge,
// commit. Any fatal error leaves no session record behind.
func (o *Orchestrator) RunSession(ctx context.Context, req types.PipelineRequest, opts RunOptions) (*types.PipelineResult, QuickCheckResult, store.SessionRecord, error) {
	startedAt := time.Now()

	req = o.withTargetHint(ctx, req)

	res, err := o.RunFull(ctx, req, opts)
	if err != nil {
		return nil, QuickCheckResult{}, store.SessionRecord{}, err
	}
	qc, err := o.RunQuickCheck(ctx, res, req)
	if err != nil {
		return nil, QuickCheckResult{}, store.SessionRecord{}, err
	}
	rec, err := o.CommitSession(ctx, req, res, qc, startedAt)
	if err != nil {
		return nil, QuickCheckResult{}, store.SessionRecord{}, err
	}
	return res, qc, rec, nil
}

// withTargetHint injects the target-correctness simulation bias derived from
// recent history, unless the caller already set one.
func (o *Orchestrator) withTargetHint(ctx context.Context, req types.PipelineRequest) types.PipelineRequest {
	if _, ok := req.Metadata["target_correctness"]; ok {
		return req
	}
	history, err := o.Sessions.GetAllSessions(ctx)
	if err != nil || len(history) == 0 {
		return req
	}
	return req.WithMeta("target_correctness", adaptive.EstimateTargetCorrectness(history))
}

// AdaptivePlanner adapts the engine's adaptive endpoint to the advisor's
// remote-planner contract.
func (o *Orchestrator) AdaptivePlanner() adaptive.RemotePlanner {
	return func(ctx context.Context, history []store.SessionRecord, currentDifficulty string) (*types.Recommendation, error) {
		b, err := json.Marshal(history)
		if err != nil {
			return nil, err
		}
		return o.Engine.AdaptivePlan(ctx, tutor.AdaptiveInput{
			HistoryJSON:       string(b),
			CurrentDifficulty: currentDifficulty,
		})
	}
}
