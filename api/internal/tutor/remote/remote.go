// Package remote talks to the inference service over HTTP: the unified
// pipeline endpoint plus the legacy single-stage ones.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ap-tutor/api/internal/tutor"
	"ap-tutor/api/internal/tutor/types"
)

type Engine struct {
	BaseURL string
	httpc   *http.Client

	// CallTimeout bounds each remote call so the orchestrator stays
	// responsive when the service hangs.
	CallTimeout time.Duration
}

func New(baseURL string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second, // TCP connect
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// Первые заголовки у инференса могут приходить долго (TTFB),
		// поэтому общий Timeout клиента держим нулевым.
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	return &Engine{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		httpc:       &http.Client{Timeout: 0, Transport: tr},
		CallTimeout: 25 * time.Second,
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g. for tests).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string { return "remote" }

func (e *Engine) RunPipeline(ctx context.Context, req types.PipelineRequest) (*types.PipelineResult, error) {
	var out types.PipelineResult
	if err := e.postJSON(ctx, "/pipeline", req, &out); err != nil {
		return nil, err
	}
	out.Results.ConsistencyValidation.Clamp()
	return &out, nil
}

func (e *Engine) GenerateProblem(ctx context.Context, gradeLevel, difficulty string) (*types.GeneratedProblem, error) {
	q := url.Values{}
	q.Set("gradeLevel", gradeLevel)
	q.Set("difficulty", difficulty)
	var out types.GeneratedProblem
	if err := e.getJSON(ctx, "/generate-problem?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Problem) == "" {
		return nil, fmt.Errorf("generate-problem returned empty payload")
	}
	return &out, nil
}

func (e *Engine) SimulateStudent(ctx context.Context, in tutor.SimulateInput) (*types.StudentSimulation, error) {
	body := map[string]any{
		"disability": in.Disability,
		"problem":    in.Problem,
	}
	if in.TargetCorrectness != "" {
		body["target_correctness"] = in.TargetCorrectness
	}
	if in.ExpectedAnswer != "" {
		body["expected_answer"] = in.ExpectedAnswer
	}
	var out types.StudentSimulation
	if err := e.postJSON(ctx, "/simulate-student", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) AnalyzeThought(ctx context.Context, in tutor.AnalyzeInput) (*types.ThoughtAnalysis, error) {
	var out types.ThoughtAnalysis
	err := e.postJSON(ctx, "/analyze-thought", map[string]any{
		"disability":      in.Disability,
		"problem":         in.Problem,
		"student_attempt": in.Attempt,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) GenerateStrategies(ctx context.Context, in tutor.StrategiesInput) (*types.TeachingStrategies, error) {
	var out types.TeachingStrategies
	err := e.postJSON(ctx, "/generate-strategies", map[string]any{
		"disability":       in.Disability,
		"problem":          in.Problem,
		"student_attempt":  in.Attempt,
		"thought_analysis": in.Thought,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) GenerateTutor(ctx context.Context, in tutor.TutorInput) (*types.TutorSession, error) {
	var out types.TutorSession
	err := e.postJSON(ctx, "/generate-tutor-dialogue", map[string]any{
		"disability":       in.Disability,
		"problem":          in.Problem,
		"student_attempt":  in.Attempt,
		"thought_analysis": in.Thought,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) ValidateConsistency(ctx context.Context, in tutor.ConsistencyInput) (*types.ConsistencyReport, error) {
	var out types.ConsistencyReport
	err := e.postJSON(ctx, "/validate-consistency", map[string]any{
		"disability":      in.Disability,
		"problem":         in.Problem,
		"expected_answer": in.ExpectedAnswer,
		"student_attempt": in.Attempt,
	}, &out)
	if err != nil {
		return nil, err
	}
	out.Clamp()
	return &out, nil
}

func (e *Engine) AdaptivePlan(ctx context.Context, in tutor.AdaptiveInput) (*types.Recommendation, error) {
	var out types.Recommendation
	err := e.postJSON(ctx, "/adaptive-difficulty", map[string]any{
		"student_history":    json.RawMessage(in.HistoryJSON),
		"current_difficulty": in.CurrentDifficulty,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// --- transport --------------------------------------------------------------

func (e *Engine) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return e.do(ctx, http.MethodPost, path, payload, out)
}

func (e *Engine) getJSON(ctx context.Context, path string, out any) error {
	return e.do(ctx, http.MethodGet, path, nil, out)
}

func (e *Engine) do(ctx context.Context, method, path string, payload []byte, out any) error {
	if e.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.CallTimeout)
		defer cancel()
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncateBytes(b, 512))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func truncateBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
