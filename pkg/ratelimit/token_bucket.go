// Package ratelimit provides the token bucket that caps how many presses per
// period turn into notifications.
package ratelimit

import (
	"sync"
	"time"
)

// Rate represents events per second
type Rate float64

// Per returns the rate for n events per duration
func Per(n int, d time.Duration) Rate {
	if d <= 0 {
		return 0
	}
	return Rate(float64(n) / d.Seconds())
}

// Clock allows tests to drive time.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using system time
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time { return time.Now() }

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	mu       sync.Mutex
	rate     Rate
	burst    int
	tokens   float64
	lastTick time.Time
	clock    Clock

	allowed uint64
	denied  uint64
}

// NewTokenBucket creates a full bucket refilled at rate, holding at most burst tokens.
func NewTokenBucket(rate Rate, burst int) *TokenBucket {
	return NewTokenBucketWithClock(rate, burst, SystemClock{})
}

// NewTokenBucketWithClock creates a new token bucket with custom clock
func NewTokenBucketWithClock(rate Rate, burst int, clock Clock) *TokenBucket {
	if rate < 0 {
		rate = 0
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     rate,
		burst:    burst,
		tokens:   float64(burst),
		lastTick: clock.Now(),
		clock:    clock,
	}
}

// Allow takes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.advance(tb.clock.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		tb.allowed++
		return true
	}
	tb.denied++
	return false
}

// Tokens returns the current number of available tokens
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.advance(tb.clock.Now())
	return tb.tokens
}

// Stats returns how many events were allowed and denied.
func (tb *TokenBucket) Stats() (allowed, denied uint64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.allowed, tb.denied
}

func (tb *TokenBucket) advance(now time.Time) {
	if now.Before(tb.lastTick) {
		// clock went backwards
		tb.lastTick = now
		return
	}
	elapsed := now.Sub(tb.lastTick).Seconds()
	tb.lastTick = now

	tb.tokens += elapsed * float64(tb.rate)
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
}
