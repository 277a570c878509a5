// Package store persists completed tutoring sessions in the keyed storage.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ap-tutor/api/internal/kv"
	"ap-tutor/api/internal/tutor/types"
)

var ErrNotFound = errors.New("session not found")

const (
	// sessionsKey — один ключ на весь список, как localStorage в оригинале.
	sessionsKey = "learning_sessions"

	// MaxSessions bounds storage growth; oldest records are dropped first.
	MaxSessions = 100
)

// SessionRecord is created exactly once per completed tutoring run and never
// mutated afterwards. Stage outputs are copied by value: later cache refreshes
// must not rewrite history.
type SessionRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	Disability string           `json:"disability"`
	GradeLevel string           `json:"grade_level"`
	Difficulty string           `json:"difficulty"`
	Problem    types.ProblemRef `json:"problem"`

	StudentAttempt     *types.StudentSimulation `json:"student_attempt,omitempty"`
	Diagnosis          *types.ThoughtAnalysis   `json:"diagnosis,omitempty"`
	TutorResponse      *types.TutorSession      `json:"tutor_response,omitempty"`
	TestAttempt        *types.StudentSimulation `json:"test_attempt,omitempty"`
	ConsistencyResults *types.ConsistencyReport `json:"consistency_results,omitempty"`

	ConsistencyScore float64 `json:"consistency_score"`
	IsCorrect        bool    `json:"is_correct"`
	HasTestQuestion  bool    `json:"has_test_question"`
	DurationSeconds  int     `json:"duration_seconds"`

	CacheStatus map[string]bool `json:"cache_status,omitempty"`
}

// SessionRepo is an append-only, capped history of tutoring sessions,
// newest first.
type SessionRepo struct {
	KV kv.Store
}

func NewSessionRepo(store kv.Store) *SessionRepo {
	return &SessionRepo{KV: store}
}

// SaveSession assigns id and timestamp, applies defaults and invariants, and
// prepends the record to the persisted list. The stored copy is returned.
func (r *SessionRepo) SaveSession(ctx context.Context, rec SessionRecord) (SessionRecord, error) {
	rec.ID = uuid.NewString()
	rec.Timestamp = time.Now()

	// consistency_score всегда в [0,1]; is_correct уже bool по типу.
	if rec.ConsistencyScore < 0 || rec.ConsistencyScore > 1 {
		rec.ConsistencyScore = 0
	}

	all, err := r.GetAllSessions(ctx)
	if err != nil {
		return SessionRecord{}, err
	}

	all = append([]SessionRecord{rec}, all...)
	if len(all) > MaxSessions {
		all = all[:MaxSessions]
	}
	if err := r.writeAll(ctx, all); err != nil {
		return SessionRecord{}, err
	}
	return rec, nil
}

// GetAllSessions returns the history, most recent first. Corrupt storage is
// treated as empty rather than fatal.
func (r *SessionRepo) GetAllSessions(ctx context.Context) ([]SessionRecord, error) {
	raw, ok, err := r.KV.Get(ctx, sessionsKey)
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var all []SessionRecord
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil, nil
	}
	return all, nil
}

// GetSession finds one record by id.
func (r *SessionRepo) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	all, err := r.GetAllSessions(ctx)
	if err != nil {
		return SessionRecord{}, err
	}
	for _, rec := range all {
		if rec.ID == id {
			return rec, nil
		}
	}
	return SessionRecord{}, ErrNotFound
}

// ClearAllSessions empties the list. Idempotent.
func (r *SessionRepo) ClearAllSessions(ctx context.Context) error {
	return r.KV.Remove(ctx, sessionsKey)
}

func (r *SessionRepo) writeAll(ctx context.Context, all []SessionRecord) error {
	b, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := r.KV.Set(ctx, sessionsKey, string(b)); err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	return nil
}
