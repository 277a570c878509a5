// Package gemini runs every pipeline stage directly against Gemini, so the
// system works with no inference service in front of it.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"ap-tutor/api/internal/tutor"
	"ap-tutor/api/internal/tutor/types"
	"ap-tutor/api/internal/util"
)

type Engine struct {
	Model  string
	client *genai.Client
}

func New(ctx context.Context, apiKey, model string) (*Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Engine{Model: model, client: client}, nil
}

func (e *Engine) Name() string { return "gemini" }

func (e *Engine) Close() error { return e.client.Close() }

// generateJSON prompts the model and decodes its JSON reply into out.
func (e *Engine) generateJSON(ctx context.Context, prompt string, out any) error {
	model := e.client.GenerativeModel(e.Model)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.7)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("gemini: empty response")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return fmt.Errorf("gemini: unexpected part type %T", resp.Candidates[0].Content.Parts[0])
	}
	raw := util.StripCodeFences(string(text))
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("gemini: bad JSON: %w", err)
	}
	return nil
}

func (e *Engine) GenerateProblem(ctx context.Context, gradeLevel, difficulty string) (*types.GeneratedProblem, error) {
	var out types.GeneratedProblem
	p := fmt.Sprintf(promptProblem, difficulty, gradeLevel, gradeLevel, difficulty)
	if err := e.generateJSON(ctx, p, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Problem) == "" {
		return nil, fmt.Errorf("gemini: problem generation returned empty payload")
	}
	return &out, nil
}

func (e *Engine) SimulateStudent(ctx context.Context, in tutor.SimulateInput) (*types.StudentSimulation, error) {
	target := in.TargetCorrectness
	if target == "" {
		target = "likely_incorrect"
	}
	expected := in.ExpectedAnswer
	if expected == "" {
		expected = "[not provided]"
	}
	var out types.StudentSimulation
	p := fmt.Sprintf(promptSimulate, in.Disability, target, expected, in.Problem)
	if err := e.generateJSON(ctx, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) AnalyzeThought(ctx context.Context, in tutor.AnalyzeInput) (*types.ThoughtAnalysis, error) {
	var out types.ThoughtAnalysis
	p := fmt.Sprintf(promptThought, in.Disability, in.Problem, dumps(in.Attempt))
	if err := e.generateJSON(ctx, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) GenerateStrategies(ctx context.Context, in tutor.StrategiesInput) (*types.TeachingStrategies, error) {
	var out types.TeachingStrategies
	p := fmt.Sprintf(promptStrategies, in.Disability, in.Problem, dumps(in.Attempt), dumps(in.Thought))
	if err := e.generateJSON(ctx, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) GenerateTutor(ctx context.Context, in tutor.TutorInput) (*types.TutorSession, error) {
	var out types.TutorSession
	p := fmt.Sprintf(promptTutor, in.Disability, in.Problem, dumps(in.Attempt), dumps(in.Thought))
	if err := e.generateJSON(ctx, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) ValidateConsistency(ctx context.Context, in tutor.ConsistencyInput) (*types.ConsistencyReport, error) {
	var out types.ConsistencyReport
	p := fmt.Sprintf(promptConsistency, in.Problem, in.Disability, in.ExpectedAnswer, dumps(in.Attempt))
	if err := e.generateJSON(ctx, p, &out); err != nil {
		return nil, err
	}
	out.Clamp()
	return &out, nil
}

func (e *Engine) AdaptivePlan(ctx context.Context, in tutor.AdaptiveInput) (*types.Recommendation, error) {
	var out types.Recommendation
	p := fmt.Sprintf(promptAdaptive, in.HistoryJSON, in.CurrentDifficulty)
	if err := e.generateJSON(ctx, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunPipeline chains the stage calls locally in the canonical order,
// honoring workflow_type and any pre-seeded problem.
func (e *Engine) RunPipeline(ctx context.Context, req types.PipelineRequest) (*types.PipelineResult, error) {
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

	problemText := req.Problem.Text
	if req.Problem.Data != nil {
		res.Results.GeneratedProblem = req.Problem.Data
	}
	if problemText == "" {
		gp, err := e.GenerateProblem(ctx, req.GradeLevel, req.Difficulty)
		if err != nil {
			return nil, err
		}
		res.Results.GeneratedProblem = gp
		problemText = gp.Problem
	}
	res.CurrentStep = types.StepProblemGenerated
	if req.WorkflowType == types.WorkflowProblemOnly {
		res.CurrentStep = types.StepCompleted
		return res, nil
	}

	target, _ := req.Metadata["target_correctness"].(string)
	expected := ""
	if res.Results.GeneratedProblem != nil {
		expected = res.Results.GeneratedProblem.Answer
	}
	sim, err := e.SimulateStudent(ctx, tutor.SimulateInput{
		Disability:        req.Disability,
		Problem:           problemText,
		TargetCorrectness: target,
		ExpectedAnswer:    expected,
	})
	if err != nil {
		return nil, err
	}
	res.Results.StudentSimulation = sim
	res.CurrentStep = types.StepStudentSimulated

	thought, err := e.AnalyzeThought(ctx, tutor.AnalyzeInput{
		Disability: req.Disability, Problem: problemText, Attempt: sim,
	})
	if err != nil {
		return nil, err
	}
	res.Results.ThoughtAnalysis = thought
	res.CurrentStep = types.StepThoughtAnalyzed
	if req.WorkflowType == types.WorkflowPreTutor || req.WorkflowType == types.WorkflowAnalysisOnly {
		res.CurrentStep = types.StepCompleted
		return res, nil
	}

	strategies, err := e.GenerateStrategies(ctx, tutor.StrategiesInput{
		Disability: req.Disability, Problem: problemText, Attempt: sim, Thought: thought,
	})
	if err != nil {
		return nil, err
	}
	res.Results.TeachingStrategies = strategies
	res.CurrentStep = types.StepStrategiesGenerated

	session, err := e.GenerateTutor(ctx, tutor.TutorInput{
		Disability: req.Disability, Problem: problemText, Attempt: sim, Thought: thought,
	})
	if err != nil {
		return nil, err
	}
	res.Results.TutorSession = session
	res.CurrentStep = types.StepTutorSimulated

	report, err := e.ValidateConsistency(ctx, tutor.ConsistencyInput{
		Disability: req.Disability, Problem: problemText, ExpectedAnswer: expected, Attempt: sim,
	})
	if err == nil {
		res.Results.ConsistencyValidation = report
		res.CurrentStep = types.StepConsistencyValidated
	}

	res.CurrentStep = types.StepCompleted
	return res, nil
}

func dumps(v any) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
