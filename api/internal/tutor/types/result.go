package types

// --- PIPELINE RESULT --------------------------------------------------------

// Pipeline steps, strictly ordered. "error" is terminal from any step.
const (
	StepInitialized          = "initialized"
	StepProblemGenerated     = "problem_generated"
	StepStudentSimulated     = "student_simulated"
	StepThoughtAnalyzed      = "thought_analyzed"
	StepStrategiesGenerated  = "strategies_generated"
	StepTutorSimulated       = "tutor_simulated"
	StepConsistencyValidated = "consistency_validated"
	StepCompleted            = "completed"
	StepError                = "error"
)

// Stage names as they appear in results and cache_status.
const (
	StageGeneratedProblem      = "generated_problem"
	StageStudentSimulation     = "student_simulation"
	StageThoughtAnalysis       = "thought_analysis"
	StageTeachingStrategies    = "teaching_strategies"
	StageTutorSession          = "tutor_session"
	StageConsistencyValidation = "consistency_validation"
	StageAdaptivePlan          = "adaptive_plan"
)

// StageResults holds every stage output; absent stages stay nil.
type StageResults struct {
	GeneratedProblem      *GeneratedProblem   `json:"generated_problem,omitempty"`
	StudentSimulation     *StudentSimulation  `json:"student_simulation,omitempty"`
	ThoughtAnalysis       *ThoughtAnalysis    `json:"thought_analysis,omitempty"`
	TeachingStrategies    *TeachingStrategies `json:"teaching_strategies,omitempty"`
	TutorSession          *TutorSession       `json:"tutor_session,omitempty"`
	ConsistencyValidation *ConsistencyReport  `json:"consistency_validation,omitempty"`
	AdaptivePlan          *Recommendation     `json:"adaptive_plan,omitempty"`
}

// ResultMetadata echoes the request context plus per-stage cache hits.
type ResultMetadata struct {
	GradeLevel  string          `json:"grade_level,omitempty"`
	Difficulty  string          `json:"difficulty,omitempty"`
	Disability  string          `json:"disability,omitempty"`
	CacheStatus map[string]bool `json:"cache_status,omitempty"`
}

// PipelineResult is never mutated after creation; a re-run produces a new one.
type PipelineResult struct {
	WorkflowType string         `json:"workflow_type"`
	CurrentStep  string         `json:"current_step"`
	Results      StageResults   `json:"results"`
	Metadata     ResultMetadata `json:"metadata"`
}

// HasStages reports whether all named stage outputs are present.
func (r *PipelineResult) HasStages(stages ...string) bool {
	if r == nil {
		return false
	}
	for _, s := range stages {
		switch s {
		case StageGeneratedProblem:
			if r.Results.GeneratedProblem == nil {
				return false
			}
		case StageStudentSimulation:
			if r.Results.StudentSimulation == nil {
				return false
			}
		case StageThoughtAnalysis:
			if r.Results.ThoughtAnalysis == nil {
				return false
			}
		case StageTeachingStrategies:
			if r.Results.TeachingStrategies == nil {
				return false
			}
		case StageTutorSession:
			if r.Results.TutorSession == nil {
				return false
			}
		case StageConsistencyValidation:
			if r.Results.ConsistencyValidation == nil {
				return false
			}
		case StageAdaptivePlan:
			if r.Results.AdaptivePlan == nil {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// RequiredStages are the outputs a workflow variant must contain to be
// considered complete; an incomplete result triggers refresh, then fallback.
func RequiredStages(workflowType string) []string {
	switch workflowType {
	case WorkflowProblemOnly:
		return []string{StageGeneratedProblem}
	case WorkflowPreTutor:
		return []string{StageStudentSimulation, StageThoughtAnalysis}
	case WorkflowAnalysisOnly:
		return []string{StageStudentSimulation, StageThoughtAnalysis}
	default: // full
		return []string{StageStudentSimulation, StageTutorSession}
	}
}
