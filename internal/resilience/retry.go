package resilience

import (
	"context"
	"time"

	clierr "solflow/internal/errors"
)

// RetryPolicy retries transient failures a bounded number of times with a
// constant delay between attempts.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do runs fn until it succeeds, returns a non-transient error, or the
// retry budget is spent. The last error is returned unmodified so callers
// keep the typed code.
func (r RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return clierr.Wrap(clierr.CodeNetwork, "retry cancelled", ctx.Err())
			case <-time.After(r.Backoff):
			}
		}
		err = fn()
		if err == nil {
			return nil
		}
		if !clierr.IsTransient(err) {
			return err
		}
	}
	return err
}
