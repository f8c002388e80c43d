// Package retry implements bounded retries with jittered exponential backoff
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy defines how an operation is retried
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy is a sensible default retry policy
var DefaultPolicy = Policy{
	MaxAttempts:    3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// IsRetryableFunc decides if an error is transient and worth another attempt
type IsRetryableFunc func(error) bool

// Do executes fn until it succeeds, fails with a non-retryable error, the
// attempt budget is exhausted, or ctx is done. The backoff between attempts
// doubles up to MaxBackoff, with up to 50% random jitter added.
func Do(ctx context.Context, policy Policy, retryable IsRetryableFunc, fn func() error) error {
	var err error
	backoff := policy.InitialBackoff

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !retryable(err) {
			return err
		}

		if attempt == policy.MaxAttempts-1 {
			break
		}

		sleep := backoff
		if backoff > 1 {
			sleep += time.Duration(rand.Int63n(int64(backoff / 2)))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		backoff *= 2
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	return err
}
