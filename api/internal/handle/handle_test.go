package handle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ap-tutor/api/internal/cache"
	"ap-tutor/api/internal/kv"
	"ap-tutor/api/internal/store"
	"ap-tutor/api/internal/tutor"
	"ap-tutor/api/internal/tutor/types"
)

type stubEngine struct{}

func (stubEngine) Name() string { return "stub" }

func (stubEngine) RunPipeline(_ context.Context, req types.PipelineRequest) (*types.PipelineResult, error) {
	return &types.PipelineResult{
		WorkflowType: req.WorkflowType,
		CurrentStep:  types.StepCompleted,
		Results: types.StageResults{
			GeneratedProblem:  &types.GeneratedProblem{Problem: "What is 6 x 7?", Answer: "42"},
			StudentSimulation: &types.StudentSimulation{FinalAnswer: "42"},
			ThoughtAnalysis:   &types.ThoughtAnalysis{},
			TutorSession: &types.TutorSession{
				Conversation: []types.ConversationTurn{{Speaker: "Tutor", Text: "hi"}},
			},
			ConsistencyValidation: &types.ConsistencyReport{OverallConsistencyScore: 0.9},
		},
	}, nil
}

func (stubEngine) GenerateProblem(context.Context, string, string) (*types.GeneratedProblem, error) {
	return &types.GeneratedProblem{Problem: "What is 6 x 7?", Answer: "42"}, nil
}
func (stubEngine) SimulateStudent(context.Context, tutor.SimulateInput) (*types.StudentSimulation, error) {
	return &types.StudentSimulation{FinalAnswer: "42"}, nil
}
func (stubEngine) AnalyzeThought(context.Context, tutor.AnalyzeInput) (*types.ThoughtAnalysis, error) {
	return &types.ThoughtAnalysis{}, nil
}
func (stubEngine) GenerateStrategies(context.Context, tutor.StrategiesInput) (*types.TeachingStrategies, error) {
	return &types.TeachingStrategies{ImmediateStrategies: []string{"chunk the problem"}}, nil
}
func (stubEngine) GenerateTutor(context.Context, tutor.TutorInput) (*types.TutorSession, error) {
	return &types.TutorSession{}, nil
}
func (stubEngine) ValidateConsistency(context.Context, tutor.ConsistencyInput) (*types.ConsistencyReport, error) {
	return &types.ConsistencyReport{OverallConsistencyScore: 0.9}, nil
}
func (stubEngine) AdaptivePlan(context.Context, tutor.AdaptiveInput) (*types.Recommendation, error) {
	return &types.Recommendation{RecommendedDifficulty: types.DifficultyHard, Confidence: 0.9}, nil
}

func newTestHandle() *Handle {
	engs := &tutor.Engines{Remote: stubEngine{}}
	return New(engs, cache.New(), store.NewSessionRepo(kv.NewMemory()))
}

func TestWorkflowHandler(t *testing.T) {
	h := newTestHandle()

	body := `{"grade_level":"7th","difficulty":"medium","disability":"Dyslexia","problem":"What is 6 x 7?","workflow_type":"full"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tutor/workflow", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Workflow(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"quick_check"`)
	assert.Contains(t, rr.Body.String(), `"tutor_session"`)

	// the run was committed
	all, err := h.sessions.GetAllSessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWorkflowHandlerRejectsBadInput(t *testing.T) {
	h := newTestHandle()

	req := httptest.NewRequest(http.MethodPost, "/v1/tutor/workflow", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.Workflow(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// missing disability on a full workflow
	req = httptest.NewRequest(http.MethodPost, "/v1/tutor/workflow",
		strings.NewReader(`{"workflow_type":"full","problem":"2+2?"}`))
	rr = httptest.NewRecorder()
	h.Workflow(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/tutor/workflow", nil)
	rr = httptest.NewRecorder()
	h.Workflow(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestWorkflowHandlerUnknownEngine(t *testing.T) {
	h := newTestHandle()

	body := `{"llm_name":"mystery","disability":"Dyslexia","problem":"2+2?"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tutor/workflow", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Workflow(rr, req)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestImprovementHandler(t *testing.T) {
	h := newTestHandle()

	body := `{"grade_level":"7th","difficulty":"medium","disability":"Dyslexia","problem":"What is 6 x 7?","workflow_type":"full"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tutor/improvement", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Improvement(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"immediate_strategies"`)
}

func TestSessionsHandler(t *testing.T) {
	h := newTestHandle()
	ctx := context.Background()

	rec, err := h.sessions.SaveSession(ctx, store.SessionRecord{Disability: "Dyslexia"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/tutor/sessions", nil)
	rr := httptest.NewRecorder()
	h.Sessions(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"count":1`)

	req = httptest.NewRequest(http.MethodGet, "/v1/tutor/sessions/"+rec.ID, nil)
	rr = httptest.NewRecorder()
	h.Sessions(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), rec.ID)

	req = httptest.NewRequest(http.MethodGet, "/v1/tutor/sessions/no-such-id", nil)
	rr = httptest.NewRecorder()
	h.Sessions(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/v1/tutor/sessions", nil)
	rr = httptest.NewRecorder()
	h.Sessions(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	all, err := h.sessions.GetAllSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAdaptiveHandler(t *testing.T) {
	h := newTestHandle()

	req := httptest.NewRequest(http.MethodPost, "/v1/tutor/adaptive",
		strings.NewReader(`{"current_difficulty":"medium"}`))
	rr := httptest.NewRecorder()
	h.Adaptive(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	// the stub's remote plan wins over the local heuristic
	assert.Contains(t, rr.Body.String(), `"recommended_difficulty":"hard"`)
}

func TestProblemAndDisabilitiesHandlers(t *testing.T) {
	h := newTestHandle()

	req := httptest.NewRequest(http.MethodGet, "/v1/tutor/problem?gradeLevel=7th&difficulty=medium", nil)
	rr := httptest.NewRecorder()
	h.Problem(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "What is 6 x 7?")

	req = httptest.NewRequest(http.MethodGet, "/v1/tutor/disabilities", nil)
	rr = httptest.NewRecorder()
	h.Disabilities(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Dyscalculia")
}
