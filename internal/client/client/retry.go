package client

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
)

// linear waits step, 2*step, 3*step, ... between attempts.
func linear(step time.Duration) retry.Backoff {
	var n atomic.Int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		return time.Duration(n.Add(1)) * step, false
	})
}

// withRetry runs fn up to attempts times while it fails with a transport
// error. An ErrOutcomeUnknown failure is final.
func (d *Driver) withRetry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := retry.WithMaxRetries(uint64(attempts-1), linear(d.opts.RetryDelay))

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if retryable(err) {
			d.logger.Debug(ctx, "retrying", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrOutcomeUnknown)
}
