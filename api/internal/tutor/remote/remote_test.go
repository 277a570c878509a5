package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ap-tutor/api/internal/tutor"
	"ap-tutor/api/internal/tutor/types"
)

func TestRunPipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/pipeline", r.URL.Path)

		var req types.PipelineRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Dyslexia", req.Disability)

		_ = json.NewEncoder(w).Encode(types.PipelineResult{
			WorkflowType: req.WorkflowType,
			CurrentStep:  types.StepCompleted,
			Results: types.StageResults{
				StudentSimulation: &types.StudentSimulation{FinalAnswer: "42"},
				// score out of range on purpose: must be clamped
				ConsistencyValidation: &types.ConsistencyReport{OverallConsistencyScore: 1.4},
			},
		})
	}))
	defer srv.Close()

	e := New(srv.URL)
	res, err := e.RunPipeline(context.Background(), types.PipelineRequest{
		Disability:   "Dyslexia",
		WorkflowType: types.WorkflowFull,
	})
	require.NoError(t, err)
	assert.Equal(t, "42", res.Results.StudentSimulation.FinalAnswer)
	assert.Equal(t, 1.0, res.Results.ConsistencyValidation.OverallConsistencyScore)
}

func TestGenerateProblemQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/generate-problem", r.URL.Path)
		assert.Equal(t, "5th", r.URL.Query().Get("gradeLevel"))
		assert.Equal(t, "easy", r.URL.Query().Get("difficulty"))
		_ = json.NewEncoder(w).Encode(types.GeneratedProblem{Problem: "2+2?", Answer: "4"})
	}))
	defer srv.Close()

	gp, err := New(srv.URL).GenerateProblem(context.Background(), "5th", "easy")
	require.NoError(t, err)
	assert.Equal(t, "4", gp.Answer)
}

func TestGenerateProblemRejectsEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.GeneratedProblem{})
	}))
	defer srv.Close()

	_, err := New(srv.URL).GenerateProblem(context.Background(), "5th", "easy")
	assert.Error(t, err)
}

func TestSimulateStudentOptionalFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/simulate-student", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "likely_correct", body["target_correctness"])
		_, hasExpected := body["expected_answer"]
		assert.False(t, hasExpected, "empty hint must not be sent")
		_ = json.NewEncoder(w).Encode(types.StudentSimulation{FinalAnswer: "7"})
	}))
	defer srv.Close()

	sim, err := New(srv.URL).SimulateStudent(context.Background(), tutor.SimulateInput{
		Disability:        "Dyscalculia",
		Problem:           "3+4?",
		TargetCorrectness: "likely_correct",
	})
	require.NoError(t, err)
	assert.Equal(t, "7", sim.FinalAnswer)
}

func TestNon2xxStatusSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ValidateConsistency(context.Background(), tutor.ConsistencyInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "model overloaded")
}
