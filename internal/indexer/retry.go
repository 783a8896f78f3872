package indexer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds retries of chain calls with exponential backoff.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func withRetry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := policy.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		if attempt >= maxRetries || ctx.Err() != nil {
			return value, err
		}
		logger.Warn("chain call failed", zap.String("op", op), zap.Int("attempt", attempt+1), zap.Duration("backoff", delay), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
