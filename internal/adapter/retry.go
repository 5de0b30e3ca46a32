package adapter

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultMaxRetries is the total number of attempts per adapter call.
	DefaultMaxRetries = 3

	// DefaultBaseDelay seeds the exponential backoff between attempts.
	DefaultBaseDelay = 500 * time.Millisecond

	// DefaultJitter is the upper bound of the random delay added to each
	// backoff sleep.
	DefaultJitter = time.Second
)

// RetryConfig tunes the retry wrapper that surrounds every adapter call.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	Jitter     time.Duration

	// Limiter throttles outgoing requests for this adapter. Nil disables
	// rate limiting.
	Limiter *rate.Limiter
}

// DefaultRetryConfig returns the standard retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay, Jitter: DefaultJitter}
}

// retryable reports whether a failure kind is worth another attempt.
// Auth errors never recover by retrying; an invalid response from the same
// request tends to repeat too.
func retryable(kind FailureKind) bool {
	return kind == FailureRateLimited || kind == FailureTimeout
}

// Retry calls svc up to cfg.MaxRetries times. Rate-limited and timed-out
// attempts back off with base*2^attempt plus up to one second of jitter;
// the sleep is interruptible through ctx so a whole-file run can cancel at
// a segment boundary. Exhausting all attempts returns the last failed
// result; the caller treats that as "no candidate" for this adapter.
func Retry(ctx context.Context, svc TranslationService, req TranslateRequest, cfg RetryConfig) *ServiceResult {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	jitter := cfg.Jitter
	if jitter <= 0 {
		jitter = DefaultJitter
	}

	var last *ServiceResult
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay*(1<<uint(attempt-1)) + time.Duration(rand.Int63n(int64(jitter)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return failure(svc.Name(), FailureTimeout, fmt.Sprintf("cancelled during backoff: %v", ctx.Err()))
			}
		}

		if cfg.Limiter != nil {
			if err := cfg.Limiter.Wait(ctx); err != nil {
				return failure(svc.Name(), FailureTimeout, fmt.Sprintf("cancelled waiting for rate limiter: %v", err))
			}
		}

		last = svc.Translate(ctx, req)
		if last.OK() || !retryable(last.Failure) {
			return last
		}
	}

	return last
}
