// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
//
// Requests may cost more than one token, so expensive simulations drain a
// bucket faster than cheap validations.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Limit describes a bucket: Rate tokens are added per second up to Burst.
type Limit struct {
	Rate  float64
	Burst int
}

// PerMinute builds a Limit from a per-minute rate.
func PerMinute(n float64, burst int) Limit {
	return Limit{Rate: n / 60.0, Burst: burst}
}

// Limiter implements a per-key token bucket rate limiter.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   Limit
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter. Each new key starts with a full bucket.
func NewLimiter(limit Limit) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		nowFunc: time.Now,
	}
}

// Allow reports whether a single-token request for key may proceed.
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, 1) == 0
}

// AllowN takes cost tokens from key's bucket. It returns zero when the request
// is allowed, otherwise how long the caller should wait before the bucket
// holds enough tokens. Costs above the burst size are clamped to it.
func (l *Limiter) AllowN(key string, cost float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	burst := float64(l.limit.Burst)
	cost = math.Min(math.Max(cost, 1), burst)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: burst, lastCheck: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.tokens+l.limit.Rate*elapsed, burst)
		b.lastCheck = now
	}

	if b.tokens < cost {
		if l.limit.Rate <= 0 {
			return time.Duration(math.MaxInt64)
		}
		missing := cost - b.tokens
		return time.Duration(missing / l.limit.Rate * float64(time.Second))
	}

	b.tokens -= cost
	return 0
}

// Error is returned when a tool call is rate limited.
type Error struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.RetryAfter == time.Duration(math.MaxInt64) {
		return fmt.Sprintf("rate limit exceeded for %s", e.Tool)
	}
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Tool, e.RetryAfter.Round(time.Second))
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// DefaultLimits returns the per-tool limits used by the MCP server.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"keepaway_simulate": PerMinute(30, 10),
		"keepaway_validate": PerMinute(60, 10),
		"keepaway_history":  PerMinute(60, 10),
	}
}

// NewToolLimiters creates one limiter per tool. A nil map uses DefaultLimits.
func NewToolLimiters(limits map[string]Limit) ToolLimiters {
	if limits == nil {
		limits = DefaultLimits()
	}
	out := make(ToolLimiters, len(limits))
	for tool, limit := range limits {
		out[tool] = NewLimiter(limit)
	}
	return out
}

// CheckLimit charges a single token for toolName.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	return CheckCost(limiters, toolName, 1)
}

// CheckCost charges cost tokens for toolName. It returns nil if allowed,
// or an *Error if rate limited. Tools without a limiter are always allowed.
func CheckCost(limiters ToolLimiters, toolName string, cost float64) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if wait := limiter.AllowN(toolName, cost); wait > 0 {
		return &Error{Tool: toolName, RetryAfter: wait}
	}
	return nil
}
