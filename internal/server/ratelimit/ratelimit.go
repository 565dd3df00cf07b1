// Package ratelimit provides per-client token bucket rate limiting for the HTTP API.
package ratelimit

import (
	"sync"
	"time"
)

// tokenBucket refills continuously at refillRate tokens per second up to capacity
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
	lastUsed   time.Time
}

func newTokenBucket(capacity int, refillRate float64, now time.Time) *tokenBucket {
	return &tokenBucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: now,
		lastUsed:   now,
	}
}

func (b *tokenBucket) refill(now time.Time) {
	if elapsed := now.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	}
	b.lastRefill = now
}

// take consumes a token if one is available and reports the resulting state
func (b *tokenBucket) take(now time.Time) (allowed bool, remaining int, full time.Time, next time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(now)
	b.lastUsed = now
	if b.tokens >= 1 {
		b.tokens--
		allowed = true
	}

	remaining = int(b.tokens)
	full = now.Add(b.until(b.capacity))
	next = now.Add(b.until(1))
	return allowed, remaining, full, next
}

// until returns how long it takes to hold n tokens
func (b *tokenBucket) until(n float64) time.Duration {
	if b.tokens >= n || b.refillRate <= 0 {
		return 0
	}
	return time.Duration((n - b.tokens) / b.refillRate * float64(time.Second))
}

func (b *tokenBucket) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}

// Info describes the limit applied to a request.
type Info struct {
	Allowed    bool
	Limit      int // 0 when the request was not limited
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter manages token buckets per client and rule.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*tokenBucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a limiter. A nil config uses DefaultConfig.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	l := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanupLoop(config.CleanupInterval)
	}
	return l
}

// Allow checks whether clientID may call method on path.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	unlimited := Info{Allowed: true}
	if !l.config.Enabled || l.config.Allowlist[clientID] {
		return true, unlimited
	}
	if l.config.Denylist[clientID] {
		return false, Info{Allowed: false}
	}

	rule := Match(path, method, l.config.Rules)
	key := clientID + " " + method + " "
	if rule == nil {
		rule = &Rule{Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
		key += "*"
	} else {
		key += rule.Pattern
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return true, unlimited
	}

	now := l.now()
	allowed, remaining, full, next := l.bucket(key, rule, now).take(now)
	info := Info{
		Allowed:   allowed,
		Limit:     rule.Limit,
		Remaining: remaining,
		ResetTime: full,
	}
	if !allowed {
		info.RetryAfter = next.Sub(now)
	}
	return allowed, info
}

func (l *Limiter) bucket(key string, rule *Rule, now time.Time) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}
	capacity := rule.Burst
	if capacity <= 0 {
		capacity = rule.Limit
	}
	b := newTokenBucket(capacity, float64(rule.Limit)/rule.Window.Seconds(), now)
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep drops buckets idle for longer than the configured TTL
func (l *Limiter) sweep() {
	ttl := l.config.IdleTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cutoff := l.now().Add(-ttl)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.idleSince().Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
