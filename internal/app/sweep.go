package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
)

const overdueLockKey = "inventory:lock:overdue_sweep"

// overdueMarker is the part of the billing service the sweep drives.
type overdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// OverdueSweeper periodically moves past-due invoices to OVERDUE. When a
// locker is set only the replica holding the lock sweeps.
type OverdueSweeper struct {
	billing  overdueMarker
	locker   *redislock.Client
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewOverdueSweeper creates a sweeper. locker may be nil.
func NewOverdueSweeper(billing overdueMarker, locker *redislock.Client, interval time.Duration, logger *slog.Logger) *OverdueSweeper {
	return &OverdueSweeper{
		billing:  billing,
		locker:   locker,
		interval: interval,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps every interval until ctx is canceled.
func (s *OverdueSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "overdue invoice sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// SweepOnce runs a single sweep. It returns 0 without sweeping when another
// replica holds the lock.
func (s *OverdueSweeper) SweepOnce(ctx context.Context) (int, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, overdueLockKey, s.lockTTL(), nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			s.logger.DebugContext(ctx, "overdue sweep lock held elsewhere, skipping")
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("obtain overdue sweep lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				s.logger.WarnContext(ctx, "failed to release overdue sweep lock", slog.String("error", err.Error()))
			}
		}()
	}

	marked, err := s.billing.MarkOverdue(ctx, s.now())
	if err != nil {
		return marked, fmt.Errorf("mark overdue: %w", err)
	}
	if marked > 0 {
		s.logger.InfoContext(ctx, "invoices marked overdue", slog.Int("count", marked))
	}
	return marked, nil
}

// lockTTL is half the interval, capped at five minutes.
func (s *OverdueSweeper) lockTTL() time.Duration {
	if ttl := s.interval / 2; ttl > 0 && ttl < 5*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}
