package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *fakeClock) {
	t.Helper()
	cfg.CleanupInterval = 0
	l := NewLimiter(cfg)
	t.Cleanup(l.Stop)
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l.now = clock.Now
	return l, clock
}

func TestTokenBucket_TakeAndRefill(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTokenBucket(3, 1.0, start)

	for i := 0; i < 3; i++ {
		ok, _, _, _ := b.take(start)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, remaining, full, next := b.take(start)
	assert.False(t, ok)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, start.Add(3*time.Second), full)
	assert.Equal(t, start.Add(time.Second), next)

	ok, _, _, _ = b.take(start.Add(1100 * time.Millisecond))
	assert.True(t, ok)
	ok, _, _, _ = b.take(start.Add(1100 * time.Millisecond))
	assert.False(t, ok)
}

func TestMatch(t *testing.T) {
	rules := DefaultRules(0)

	tests := []struct {
		name    string
		path    string
		method  string
		pattern string
	}{
		{"trigger", "/sessions/5b8e/report", "POST", "/sessions/*/report"},
		{"status", "/sessions/5b8e/report", "GET", "/sessions/*/report"},
		{"health", "/health", "GET", "/health"},
		{"trailing slash", "/sessions/5b8e/report/", "POST", "/sessions/*/report"},
		{"other method", "/sessions/5b8e/report", "DELETE", ""},
		{"too deep", "/sessions/5b8e/report/extra", "POST", ""},
		{"unknown", "/metrics", "GET", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := Match(tt.path, tt.method, rules)
			if tt.pattern == "" {
				assert.Nil(t, rule)
				return
			}
			require.NotNil(t, rule)
			assert.Equal(t, tt.pattern, rule.Pattern)
		})
	}
}

func TestLimiter_TriggerBucketSharedAcrossSessions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = []Rule{{Pattern: "/sessions/*/report", Method: "POST", Limit: 2, Window: time.Minute}}
	l, clock := newTestLimiter(t, cfg)

	ok, _ := l.Allow("10.0.0.1", "/sessions/a/report", "POST")
	assert.True(t, ok)
	ok, _ = l.Allow("10.0.0.1", "/sessions/b/report", "POST")
	assert.True(t, ok)
	ok, info := l.Allow("10.0.0.1", "/sessions/c/report", "POST")
	assert.False(t, ok)
	assert.Equal(t, 2, info.Limit)
	assert.InDelta(t, float64(30*time.Second), float64(info.RetryAfter), float64(time.Millisecond))

	// Another client has its own bucket
	ok, _ = l.Allow("10.0.0.2", "/sessions/a/report", "POST")
	assert.True(t, ok)

	clock.Advance(31 * time.Second)
	ok, _ = l.Allow("10.0.0.1", "/sessions/c/report", "POST")
	assert.True(t, ok)
}

func TestLimiter_DefaultLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLimit = 1
	cfg.Rules = nil
	l, _ := newTestLimiter(t, cfg)

	ok, _ := l.Allow("c", "/anything", "GET")
	assert.True(t, ok)
	ok, _ = l.Allow("c", "/else", "GET")
	assert.False(t, ok, "unmatched paths share the default bucket")
}

func TestLimiter_Lists(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLimit = 1
	cfg.Rules = nil
	cfg.Allowlist = map[string]bool{"trusted": true}
	cfg.Denylist = map[string]bool{"blocked": true}
	l, _ := newTestLimiter(t, cfg)

	for i := 0; i < 5; i++ {
		ok, info := l.Allow("trusted", "/x", "GET")
		assert.True(t, ok)
		assert.Zero(t, info.Limit)
	}
	ok, _ := l.Allow("blocked", "/x", "GET")
	assert.False(t, ok)
}

func TestLimiter_DisabledAndUnlimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	l, _ := newTestLimiter(t, cfg)
	for i := 0; i < 10; i++ {
		ok, _ := l.Allow("c", "/sessions/a/report", "POST")
		assert.True(t, ok)
	}

	l2, _ := newTestLimiter(t, DefaultConfig())
	for i := 0; i < 1000; i++ {
		ok, _ := l2.Allow("c", "/health", "GET")
		require.True(t, ok)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = []Rule{{Pattern: "/sessions/*/report", Method: "POST", Limit: 50, Window: time.Hour}}
	l, _ := newTestLimiter(t, cfg)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/sessions/a/report", "POST"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(50), allowed.Load())
}

func TestLimiter_SweepDropsIdleBuckets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTTL = time.Minute
	l, clock := newTestLimiter(t, cfg)

	l.Allow("old", "/x", "GET")
	clock.Advance(2 * time.Minute)
	l.Allow("new", "/x", "GET")
	l.sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 1)
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT":  "42",
		"RATE_LIMIT_DEFAULT_WINDOW": "30s",
		"RATE_LIMIT_ALLOWLIST":      "10.0.0.1, 10.0.0.2",
	}
	cfg := LoadConfig(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}, 6)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.True(t, cfg.Allowlist["10.0.0.2"])

	rule := Match("/sessions/a/report", "POST", cfg.Rules)
	require.NotNil(t, rule)
	assert.Equal(t, 6, rule.Limit)
	assert.Equal(t, time.Minute, rule.Window)

	disabled := LoadConfig(func(k string) (string, bool) {
		if k == "RATE_LIMIT_ENABLED" {
			return "false", true
		}
		return "", false
	}, 0)
	assert.False(t, disabled.Enabled)
}
