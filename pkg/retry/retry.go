// Package retry re-runs operations that lost an optimistic concurrency race.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
	"github.com/utafrali/InventoryGo/pkg/logger"
)

// Policy bounds conflict retries.
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultPolicy retries a conflicting operation up to three times.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, InitialDelay: 10 * time.Millisecond, MaxDelay: 200 * time.Millisecond}
}

func (p Policy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	return b
}

// OnConflict runs fn until it succeeds, fails with an error that is not a
// concurrent modification, or the attempts are used up. The last error is
// returned unchanged so callers can still match it.
func OnConflict[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := fn(ctx)
		if err != nil && !apperrors.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.Attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.FromContext(ctx).DebugContext(ctx, "retrying after concurrent modification",
				slog.String("operation", op),
				slog.Int("attempt", attempt),
				slog.Duration("next", next),
			)
		}),
	)
}

// Do is OnConflict for operations without a result.
func Do(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	_, err := OnConflict(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
