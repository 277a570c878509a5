package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ap-tutor/api/internal/tutor/types"
	"ap-tutor/api/internal/workflow"
)

// --- WORKFLOW ---------------------------------------------------------------

type workflowReq struct {
	LLMName      string `json:"llm_name"`
	ForceRefresh bool   `json:"force_refresh"`
	types.PipelineRequest
}

// Workflow runs the full tutoring session: pipeline resolution, the
// correctness judgement and the history commit.
func (h *Handle) Workflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req workflowReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r, 180*time.Second))
	defer cancel()

	o, err := h.orchestrator(req.LLMName)
	if err != nil {
		http.Error(w, "workflow error: "+err.Error(), http.StatusBadGateway)
		return
	}

	res, qc, rec, err := o.RunSession(ctx, req.PipelineRequest, workflow.RunOptions{ForceRefresh: req.ForceRefresh})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result":      res,
		"quick_check": qc,
		"session":     rec,
	})
}

// QuickCheck judges an already computed result without committing a session.
func (h *Handle) QuickCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req workflowReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r, 180*time.Second))
	defer cancel()

	o, err := h.orchestrator(req.LLMName)
	if err != nil {
		http.Error(w, "quick-check error: "+err.Error(), http.StatusBadGateway)
		return
	}

	res, err := o.RunFull(ctx, req.PipelineRequest, workflow.RunOptions{ForceRefresh: req.ForceRefresh})
	if err != nil {
		writeError(w, err)
		return
	}
	qc, err := o.RunQuickCheck(ctx, res, req.PipelineRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, qc)
}

// Improvement serves the derived teaching-strategies analysis for a resolved
// run. The base result comes off the warm cache when the workflow already ran.
func (h *Handle) Improvement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req workflowReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r, 180*time.Second))
	defer cancel()

	o, err := h.orchestrator(req.LLMName)
	if err != nil {
		http.Error(w, "improvement error: "+err.Error(), http.StatusBadGateway)
		return
	}

	res, err := o.RunFull(ctx, req.PipelineRequest, workflow.RunOptions{})
	if err != nil {
		writeError(w, err)
		return
	}
	strategies, err := o.RunImprovement(ctx, req.PipelineRequest, res)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategies)
}

// Problem serves a standalone generated problem, like the legacy endpoint.
func (h *Handle) Problem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	engine, err := h.engs.GetEngine(r.URL.Query().Get("llm_name"))
	if err != nil {
		http.Error(w, "problem error: "+err.Error(), http.StatusBadGateway)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r, 60*time.Second))
	defer cancel()

	gp, err := engine.GenerateProblem(ctx, r.URL.Query().Get("gradeLevel"), r.URL.Query().Get("difficulty"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gp)
}

// Disabilities lists the supported learning-disability profiles.
func (h *Handle) Disabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"disabilities": types.Disabilities})
}
