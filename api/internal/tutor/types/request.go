package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// --- PIPELINE REQUEST -------------------------------------------------------

const (
	Grade2nd = "2nd"
	Grade5th = "5th"
	Grade7th = "7th"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	WorkflowProblemOnly  = "problem_only"
	WorkflowFull         = "full"
	WorkflowPreTutor     = "pre_tutor"
	WorkflowAnalysisOnly = "analysis_only"
)

// Disabilities — фиксированный каталог; значения приходят с фронта как есть.
var Disabilities = []string{
	"Dyslexia",
	"Dysgraphia",
	"Dyscalculia",
	"Attention Deficit Hyperactivity Disorder",
	"Auditory Processing Disorder",
	"Non verbal Learning Disorder",
	"Language Processing Disorder",
}

// ProblemRef is either plain problem text or a full generated problem.
// The wire shape is a string or an object, so (un)marshalling is custom.
type ProblemRef struct {
	Text string
	Data *GeneratedProblem
}

func (p *ProblemRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.Text = strings.TrimSpace(s)
		p.Data = nil
		return nil
	}
	var gp GeneratedProblem
	if err := json.Unmarshal(b, &gp); err != nil {
		return fmt.Errorf("problem must be a string or an object: %w", err)
	}
	p.Data = &gp
	p.Text = strings.TrimSpace(gp.Problem)
	return nil
}

func (p ProblemRef) MarshalJSON() ([]byte, error) {
	if p.Data != nil {
		return json.Marshal(p.Data)
	}
	return json.Marshal(p.Text)
}

// IsEmpty reports whether no problem was provided at all.
func (p ProblemRef) IsEmpty() bool {
	return p.Data == nil && strings.TrimSpace(p.Text) == ""
}

// Canonical returns the stable form used for cache fingerprinting:
// the struct's serialization for structured problems, the raw text otherwise.
func (p ProblemRef) Canonical() string {
	if p.Data != nil {
		b, _ := json.Marshal(p.Data)
		return string(b)
	}
	return p.Text
}

// PipelineRequest is the single input of the workflow. Immutable once built:
// derived requests (quick-check, adaptive) are produced via copies.
type PipelineRequest struct {
	GradeLevel   string         `json:"grade_level"`
	Difficulty   string         `json:"difficulty"`
	Disability   string         `json:"disability"`
	Problem      ProblemRef     `json:"problem,omitempty"`
	WorkflowType string         `json:"workflow_type"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// WithProblem returns a copy of the request with the problem text replaced.
func (r PipelineRequest) WithProblem(text string) PipelineRequest {
	cp := r
	cp.Problem = ProblemRef{Text: strings.TrimSpace(text)}
	cp.Metadata = cloneMeta(r.Metadata)
	return cp
}

// WithMeta returns a copy with one metadata key set.
func (r PipelineRequest) WithMeta(key string, value any) PipelineRequest {
	cp := r
	cp.Metadata = cloneMeta(r.Metadata)
	cp.Metadata[key] = value
	return cp
}

func cloneMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func validGrade(g string) bool {
	return g == Grade2nd || g == Grade5th || g == Grade7th
}

func validDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

func validWorkflow(w string) bool {
	switch w {
	case WorkflowProblemOnly, WorkflowFull, WorkflowPreTutor, WorkflowAnalysisOnly:
		return true
	}
	return false
}

// Validate normalizes defaults and rejects requests the pipeline cannot run.
// Workflows other than problem_only need a problem or the means to generate one.
func (r *PipelineRequest) Validate() error {
	if r.GradeLevel == "" {
		r.GradeLevel = Grade7th
	}
	if r.Difficulty == "" {
		r.Difficulty = DifficultyMedium
	}
	if r.WorkflowType == "" {
		r.WorkflowType = WorkflowFull
	}
	if !validGrade(r.GradeLevel) {
		return fmt.Errorf("unknown grade_level %q", r.GradeLevel)
	}
	if !validDifficulty(r.Difficulty) {
		return fmt.Errorf("unknown difficulty %q", r.Difficulty)
	}
	if !validWorkflow(r.WorkflowType) {
		return fmt.Errorf("unknown workflow_type %q", r.WorkflowType)
	}
	if r.WorkflowType != WorkflowProblemOnly && strings.TrimSpace(r.Disability) == "" {
		return fmt.Errorf("disability is required for %s workflow", r.WorkflowType)
	}
	if r.WorkflowType == WorkflowAnalysisOnly && r.Problem.IsEmpty() {
		return fmt.Errorf("problem is required for %s workflow", r.WorkflowType)
	}
	return nil
}
