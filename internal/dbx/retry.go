package dbx

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how long a store call may be retried before the
// failure is surfaced to the caller.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries transient failures three times, starting at
// 50ms and never waiting more than one second between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// WithRetry runs fn and repeats it while it fails with a transient error
// (see IsTransient) and the policy allows. Non-transient errors are
// returned immediately.
func WithRetry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// IsTransient reports whether err is worth retrying: serialization
// failures, deadlocks, connection exceptions and dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return true
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
