package scraper

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy retries an operation that failed with a NavigationTimeoutError.
// Any other error is returned immediately.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	BackoffMax  time.Duration
	Metrics     *Metrics
}

// NoRetry runs the operation exactly once.
var NoRetry = RetryPolicy{MaxAttempts: 1}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are exhausted. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !IsNavigationTimeout(err) || attempt == attempts {
			return err
		}

		delay := p.backoff(attempt)
		slog.DebugContext(ctx, "retrying after navigation timeout",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		p.Metrics.IncRetries(op)
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	delay := p.Backoff * time.Duration(1<<(attempt-1))
	if p.BackoffMax > 0 && delay > p.BackoffMax {
		delay = p.BackoffMax
	}
	return delay
}
