package handle

import (
	"encoding/json"
	"net/http"
	"strings"
)

// --- SESSION HISTORY --------------------------------------------------------

// Sessions serves /v1/tutor/sessions and /v1/tutor/sessions/{id}.
// GET lists (or fetches one), DELETE clears the whole history.
func (h *Handle) Sessions(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/tutor/sessions"), "/")

	switch r.Method {
	case http.MethodGet:
		if id != "" {
			rec, err := h.sessions.GetSession(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, rec)
			return
		}
		all, err := h.sessions.GetAllSessions(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sessions": all,
			"count":    len(all),
		})

	case http.MethodDelete:
		if id != "" {
			http.Error(w, "individual sessions cannot be deleted", http.StatusMethodNotAllowed)
			return
		}
		if err := h.sessions.ClearAllSessions(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})

	default:
		http.Error(w, "GET or DELETE only", http.StatusMethodNotAllowed)
	}
}

// --- ADAPTIVE DIFFICULTY ----------------------------------------------------

type adaptiveReq struct {
	LLMName           string `json:"llm_name"`
	CurrentDifficulty string `json:"current_difficulty"`
}

// Adaptive returns the next-difficulty recommendation for the stored history.
// The remote planner is preferred; its failure silently falls back to the
// local rules, so this endpoint never reports a gateway error for it.
func (h *Handle) Adaptive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req adaptiveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}

	o, err := h.orchestrator(req.LLMName)
	if err != nil {
		http.Error(w, "adaptive error: "+err.Error(), http.StatusBadGateway)
		return
	}
	history, err := h.sessions.GetAllSessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	rec := h.advisor(o).Recommend(r.Context(), history, req.CurrentDifficulty)
	writeJSON(w, http.StatusOK, rec)
}
