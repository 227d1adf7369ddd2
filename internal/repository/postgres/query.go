package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// where accumulates AND-ed conditions with positional arguments. Each
// condition carries a single %d for its placeholder index.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// noRows maps pgx.ErrNoRows to a NotFound error for resource/id and wraps
// anything else with op.
func noRows(err error, op, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound(resource, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// casResult turns the row count of a versioned UPDATE into a
// ConcurrentModification error when nothing matched.
func casResult(tag pgconn.CommandTag, resource, id string) error {
	if tag.RowsAffected() == 0 {
		return apperrors.ConcurrentModification(resource, id)
	}
	return nil
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
