// Package service implements the inventory ledger and the order, shipment,
// billing and payment state machines on top of the repository contracts.
//
// Every exported operation is one unit of work. When an operation touches
// several records and a later step fails, the earlier steps are reversed
// before the error is returned. The core never retries a lost optimistic
// race on behalf of its caller; only compensation steps retry.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// Clock returns the current time. Services default to time.Now in UTC.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// compensate runs undo on a context that outlives the caller's cancellation.
// undo is expected to retry its own conflicts. compensate returns original
// when undo succeeds. Otherwise it logs both failures and returns an internal
// error that still wraps original.
func compensate(ctx context.Context, logger *slog.Logger, op string, original error, undo func(context.Context) error) error {
	ctx = context.WithoutCancel(ctx)
	if err := undo(ctx); err != nil {
		logger.ErrorContext(ctx, "compensation failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
			slog.String("original_error", original.Error()),
		)
		return apperrors.Internal(fmt.Errorf("%s: compensation failed: %v: %w", op, err, original))
	}
	logger.WarnContext(ctx, "operation compensated",
		slog.String("operation", op),
		slog.String("error", original.Error()),
	)
	return original
}
