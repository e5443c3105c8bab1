package services

import (
	"context"
	"time"
)

// RetryPolicy bounds how often an adapter retries a failed call. The zero
// value disables retries (one attempt, no delay).
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy covers transient extractor and store hiccups without
// hiding persistent faults.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 500 * time.Millisecond}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Retry invokes fn until it succeeds, the policy is exhausted, or the context
// is done. The last error is returned. Backoff grows linearly per attempt.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= policy.attempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == policy.attempts() {
			break
		}
		delay := policy.Backoff * time.Duration(attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
