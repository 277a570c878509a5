// Package cache maps a deterministic fingerprint of a pipeline request to the
// last computed pipeline result.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"ap-tutor/api/internal/kv"
	"ap-tutor/api/internal/tutor/types"
	"ap-tutor/api/internal/util"
)

var ErrMiss = errors.New("cache miss")

const (
	defaultTTL        = 10 * time.Minute
	defaultMaxEntries = 128

	// kvPrefix namespaces durable entries inside the shared keyed storage.
	kvPrefix = "pipeline_cache|"
)

// Fingerprint derives the cache key from the stable request fields only.
// Metadata and workflow_type are deliberately excluded: requests differing in
// those address the same slot. Derived analyses append their own suffix to
// the returned key (key + "|improvement" и т.п.).
func Fingerprint(req types.PipelineRequest) string {
	payload := strings.Join([]string{
		req.GradeLevel,
		req.Difficulty,
		req.Disability,
		req.Problem.Canonical(),
	}, "|")
	return util.SHA256Hex([]byte(payload))
}

type entry struct {
	result    *types.PipelineResult
	createdAt time.Time
}

// Cache is an in-memory TTL cache with optional write-through durability in
// the keyed storage. A per-key flight lock keeps overlapping resolves for the
// same fingerprint down to one remote call.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	max     int

	flight sync.Map // key -> *sync.Mutex

	durable kv.Store // nil = memory only
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.max = n
		}
	}
}

// WithDurable mirrors entries into the keyed storage so warm results survive
// process restarts.
func WithDurable(store kv.Store) Option {
	return func(c *Cache) { c.durable = store }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		ttl:     defaultTTL,
		max:     defaultMaxEntries,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached result for key, or ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) (*types.PipelineResult, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.ttl > 0 && time.Since(e.createdAt) > c.ttl {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if ok {
		return e.result, nil
	}

	if c.durable != nil {
		raw, found, err := c.durable.Get(ctx, kvPrefix+key)
		if err == nil && found {
			var res types.PipelineResult
			if err := json.Unmarshal([]byte(raw), &res); err == nil {
				c.putMemory(key, &res)
				return &res, nil
			}
			// битый JSON в сторадже — считаем промахом
		}
	}
	return nil, ErrMiss
}

// Put overwrites any existing entry unconditionally.
func (c *Cache) Put(ctx context.Context, key string, res *types.PipelineResult) {
	c.putMemory(key, res)
	if c.durable != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := c.durable.Set(ctx, kvPrefix+key, string(b)); err != nil {
				log.Printf("cache: durable set %s: %v", key, err)
			}
		}
	}
}

func (c *Cache) putMemory(key string, res *types.PipelineResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		c.evictOldestLocked()
	}
	c.entries[key] = &entry{result: res, createdAt: time.Now()}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Resolve returns the cached result for the request's fingerprint, or invokes
// fetch, stores its result and returns it. forceRefresh skips the lookup but
// still writes. A failed fetch is never cached; the error propagates as is.
func (c *Cache) Resolve(
	ctx context.Context,
	req types.PipelineRequest,
	forceRefresh bool,
	fetch func(ctx context.Context) (*types.PipelineResult, error),
) (*types.PipelineResult, error) {
	return c.ResolveKey(ctx, Fingerprint(req), forceRefresh, fetch)
}

// ResolveKey is Resolve for callers that augment the fingerprint themselves.
func (c *Cache) ResolveKey(
	ctx context.Context,
	key string,
	forceRefresh bool,
	fetch func(ctx context.Context) (*types.PipelineResult, error),
) (*types.PipelineResult, error) {
	lk, _ := c.flight.LoadOrStore(key, &sync.Mutex{})
	keyMu := lk.(*sync.Mutex)
	keyMu.Lock()
	defer keyMu.Unlock()

	if !forceRefresh {
		if res, err := c.Get(ctx, key); err == nil {
			return res, nil
		}
	}
	res, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.Put(ctx, key, res)
	return res, nil
}
