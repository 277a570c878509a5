package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ap-tutor/api/internal/kv"
	"ap-tutor/api/internal/tutor/types"
)

func sampleRequest() types.PipelineRequest {
	return types.PipelineRequest{
		GradeLevel:   types.Grade7th,
		Difficulty:   types.DifficultyMedium,
		Disability:   "Dyslexia",
		Problem:      types.ProblemRef{Text: "What is 6 x 7?"},
		WorkflowType: types.WorkflowFull,
	}
}

func TestFingerprintStable(t *testing.T) {
	a := sampleRequest()
	b := sampleRequest()
	b.Metadata = map[string]any{"target_correctness": "balanced"}
	b.WorkflowType = types.WorkflowAnalysisOnly
	assert.Equal(t, Fingerprint(a), Fingerprint(b),
		"metadata and workflow_type must not affect the key")

	c := sampleRequest()
	c.Disability = "Dyscalculia"
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))

	d := sampleRequest()
	d.Problem = types.ProblemRef{Data: &types.GeneratedProblem{Problem: "What is 6 x 7?", Answer: "42"}}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(d),
		"structured problems key off their canonical serialization")
}

func TestResolveWarmAndForced(t *testing.T) {
	ctx := context.Background()
	c := New()
	req := sampleRequest()

	calls := 0
	fetch := func(context.Context) (*types.PipelineResult, error) {
		calls++
		return &types.PipelineResult{CurrentStep: types.StepCompleted}, nil
	}

	_, err := c.Resolve(ctx, req, false, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// warm cache: zero extra calls
	_, err = c.Resolve(ctx, req, false, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// forced: exactly one more
	_, err = c.Resolve(ctx, req, true, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestResolveNeverCachesFailure(t *testing.T) {
	ctx := context.Background()
	c := New()
	req := sampleRequest()

	boom := errors.New("remote down")
	calls := 0
	_, err := c.Resolve(ctx, req, false, func(context.Context) (*types.PipelineResult, error) {
		calls++
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = c.Get(ctx, Fingerprint(req))
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 1, calls)
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := New(WithTTL(10 * time.Millisecond))
	c.Put(ctx, "k", &types.PipelineResult{})

	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMaxEntriesEviction(t *testing.T) {
	ctx := context.Background()
	c := New(WithMaxEntries(2))
	c.Put(ctx, "a", &types.PipelineResult{CurrentStep: "a"})
	time.Sleep(time.Millisecond)
	c.Put(ctx, "b", &types.PipelineResult{CurrentStep: "b"})
	time.Sleep(time.Millisecond)
	c.Put(ctx, "c", &types.PipelineResult{CurrentStep: "c"})

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss, "oldest entry evicted first")
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestDurableRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	c1 := New(WithDurable(store))
	req := sampleRequest()
	c1.Put(ctx, Fingerprint(req), &types.PipelineResult{CurrentStep: types.StepCompleted})

	// fresh cache, same storage: warm through the durable layer
	c2 := New(WithDurable(store))
	res, err := c2.Get(ctx, Fingerprint(req))
	require.NoError(t, err)
	assert.Equal(t, types.StepCompleted, res.CurrentStep)
}
