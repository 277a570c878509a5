// Package tutor defines the inference engine contract of the pipeline.
package tutor

import (
	"context"
	"errors"

	"ap-tutor/api/internal/tutor/types"
)

// Stage inputs. Upstream payloads referenced from later stages travel as the
// typed structs they were parsed into, not re-serialized blobs.

type SimulateInput struct {
	Disability string
	Problem    string

	// Simulation bias hints, optional.
	TargetCorrectness string
	ExpectedAnswer    string
}

type AnalyzeInput struct {
	Disability string
	Problem    string
	Attempt    *types.StudentSimulation
}

type StrategiesInput struct {
	Disability string
	Problem    string
	Attempt    *types.StudentSimulation
	Thought    *types.ThoughtAnalysis
}

type TutorInput struct {
	Disability string
	Problem    string
	Attempt    *types.StudentSimulation
	Thought    *types.ThoughtAnalysis
}

type ConsistencyInput struct {
	Disability     string
	Problem        string
	ExpectedAnswer string
	Attempt        *types.StudentSimulation
}

type AdaptiveInput struct {
	HistoryJSON       string
	CurrentDifficulty string
}

// Engine is one inference backend. RunPipeline is the unified path; the rest
// are the single-stage calls the orchestrator falls back to when the unified
// result comes back incomplete.
type Engine interface {
	Name() string

	RunPipeline(ctx context.Context, req types.PipelineRequest) (*types.PipelineResult, error)

	GenerateProblem(ctx context.Context, gradeLevel, difficulty string) (*types.GeneratedProblem, error)
	SimulateStudent(ctx context.Context, in SimulateInput) (*types.StudentSimulation, error)
	AnalyzeThought(ctx context.Context, in AnalyzeInput) (*types.ThoughtAnalysis, error)
	GenerateStrategies(ctx context.Context, in StrategiesInput) (*types.TeachingStrategies, error)
	GenerateTutor(ctx context.Context, in TutorInput) (*types.TutorSession, error)
	ValidateConsistency(ctx context.Context, in ConsistencyInput) (*types.ConsistencyReport, error)
	AdaptivePlan(ctx context.Context, in AdaptiveInput) (*types.Recommendation, error)
}

type Engines struct {
	Remote Engine
	Gemini Engine
}

// GetEngine resolves a backend by request name, defaulting to the remote one.
func (e *Engines) GetEngine(name string) (Engine, error) {
	switch name {
	case "", "remote", "pipeline":
		if e.Remote != nil {
			return e.Remote, nil
		}
		if e.Gemini != nil {
			return e.Gemini, nil
		}
		return nil, errors.New("no engine configured")
	case "gemini":
		if e.Gemini == nil {
			return nil, errors.New("gemini engine is not configured")
		}
		return e.Gemini, nil
	default:
		return nil, errors.New("unknown engine name; use 'remote' or 'gemini'")
	}
}
