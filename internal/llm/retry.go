package llm

import (
	"context"
	"log"
	"time"
)

// RetryPolicy bounds how often and how long a generator is called
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first
	MaxAttempts int
	// BackoffStep is multiplied by the attempt number to get the wait after a failure
	BackoffStep time.Duration
	// Timeout bounds each individual attempt
	Timeout time.Duration
}

// DefaultRetryPolicy returns three attempts with linear one-second backoff and a 180s
// per-attempt timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BackoffStep: time.Second,
		Timeout:     180 * time.Second,
	}
}

// Delay returns the wait after the given failed attempt (1-based)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.BackoffStep
}

// RetryingGenerator wraps a Generator with a RetryPolicy
type RetryingGenerator struct {
	next   Generator
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryingGenerator wraps next. Non-positive policy fields fall back to the defaults.
func NewRetryingGenerator(next Generator, policy RetryPolicy) *RetryingGenerator {
	def := DefaultRetryPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.BackoffStep < 0 {
		policy.BackoffStep = def.BackoffStep
	}
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}
	return &RetryingGenerator{next: next, policy: policy, sleep: sleepContext}
}

// WithSleep replaces the backoff sleep, for tests
func (g *RetryingGenerator) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *RetryingGenerator {
	g.sleep = sleep
	return g
}

// Policy returns the effective policy
func (g *RetryingGenerator) Policy() RetryPolicy {
	return g.policy
}

// Generate calls the wrapped generator until it succeeds or the policy is exhausted.
// There is no wait after the final attempt.
func (g *RetryingGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		attempts = attempt
		out, err := g.attempt(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		log.Printf("[llm] generator attempt %d/%d failed: %v", attempt, g.policy.MaxAttempts, err)

		if ctx.Err() != nil {
			break
		}
		if attempt < g.policy.MaxAttempts {
			if err := g.sleep(ctx, g.policy.Delay(attempt)); err != nil {
				break
			}
		}
	}
	return "", &ExhaustedError{Attempts: attempts, Last: lastErr}
}

func (g *RetryingGenerator) attempt(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.policy.Timeout)
	defer cancel()
	return g.next.Generate(ctx, req)
}

// Close closes the wrapped generator
func (g *RetryingGenerator) Close() error {
	return g.next.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
