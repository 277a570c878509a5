package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ap-tutor/api/internal/adaptive"
	"ap-tutor/api/internal/cache"
	"ap-tutor/api/internal/store"
	"ap-tutor/api/internal/tutor"
	"ap-tutor/api/internal/workflow"
)

type Handle struct {
	engs     *tutor.Engines
	cache    *cache.Cache
	sessions *store.SessionRepo
}

func New(engs *tutor.Engines, c *cache.Cache, sessions *store.SessionRepo) *Handle {
	return &Handle{
		engs:     engs,
		cache:    c,
		sessions: sessions,
	}
}

// orchestrator binds the named engine to the shared cache and session store.
func (h *Handle) orchestrator(llmName string) (*workflow.Orchestrator, error) {
	engine, err := h.engs.GetEngine(llmName)
	if err != nil {
		return nil, err
	}
	return workflow.New(engine, h.cache, h.sessions), nil
}

func (h *Handle) advisor(o *workflow.Orchestrator) *adaptive.Advisor {
	return &adaptive.Advisor{Remote: o.AdaptivePlanner()}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrMissingInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

// requestDeadline: заголовок приоритетнее query-параметра.
func requestDeadline(r *http.Request, def time.Duration) time.Duration {
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return def
}
