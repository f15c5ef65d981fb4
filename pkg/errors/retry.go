// Package errors provides retry policies used by the dispatch orchestrator
package errors

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy defines how failed deliveries are retried
type RetryPolicy interface {
	// ShouldRetry determines if an error should be retried after the given attempt
	ShouldRetry(err error, attempt int) bool

	// RetryDelay calculates the delay before the round that follows attempt
	RetryDelay(attempt int) time.Duration

	// MaxAttempts returns the maximum number of attempts, the first one included
	MaxAttempts() int
}

// FixedDelayPolicy implements fixed delay between retries
type FixedDelayPolicy struct {
	Delay        time.Duration
	MaxAttempts_ int
}

// NewFixedDelayPolicy creates a new fixed delay policy
func NewFixedDelayPolicy(delay time.Duration, maxAttempts int) *FixedDelayPolicy {
	return &FixedDelayPolicy{
		Delay:        delay,
		MaxAttempts_: maxAttempts,
	}
}

// ShouldRetry determines if an error should be retried
func (p *FixedDelayPolicy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.MaxAttempts_ {
		return false
	}
	return shouldRetry(err)
}

// RetryDelay returns the fixed delay
func (p *FixedDelayPolicy) RetryDelay(int) time.Duration {
	return p.Delay
}

// MaxAttempts returns the maximum number of attempts
func (p *FixedDelayPolicy) MaxAttempts() int {
	return p.MaxAttempts_
}

// ExponentialBackoffPolicy implements exponential backoff with jitter
type ExponentialBackoffPolicy struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
	MaxAttempts_ int
}

// NewExponentialBackoffPolicy creates a new exponential backoff policy
func NewExponentialBackoffPolicy(baseDelay, maxDelay time.Duration, maxAttempts int) *ExponentialBackoffPolicy {
	return &ExponentialBackoffPolicy{
		BaseDelay:    baseDelay,
		MaxDelay:     maxDelay,
		Multiplier:   2.0,
		Jitter:       0.1,
		MaxAttempts_: maxAttempts,
	}
}

// ShouldRetry determines if an error should be retried
func (p *ExponentialBackoffPolicy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.MaxAttempts_ {
		return false
	}
	return shouldRetry(err)
}

// RetryDelay walks a fresh backoff sequence up to attempt, so the policy itself stays stateless.
func (p *ExponentialBackoffPolicy) RetryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: p.Jitter,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxDelay,
	}
	b.Reset()

	var delay time.Duration
	for i := 0; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	if delay == backoff.Stop || delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// MaxAttempts returns the maximum number of attempts
func (p *ExponentialBackoffPolicy) MaxAttempts() int {
	return p.MaxAttempts_
}

// Errors that are not NotifyErrors come from channels written outside this module; retry them.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if ne, ok := As(err); ok {
		return ne.IsRetryable()
	}
	return true
}
