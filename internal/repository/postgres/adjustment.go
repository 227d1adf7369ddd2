package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/pkg/database"
)

// AdjustmentRepository implements repository.AdjustmentRepository using PostgreSQL.
type AdjustmentRepository struct {
	pool database.DBTX
}

// NewAdjustmentRepository creates a new PostgreSQL-backed adjustment repository.
func NewAdjustmentRepository(pool database.DBTX) *AdjustmentRepository {
	return &AdjustmentRepository{pool: pool}
}

const adjustmentColumns = `id, product_id, warehouse_id, quantity_change, quantity_before, quantity_after, type, reason, notes,
	status, applied, applied_at, performed_by, approved_by, version, created_at, updated_at`

func scanAdjustment(row pgx.Row, a *domain.StockAdjustment) error {
	return row.Scan(
		&a.ID,
		&a.ProductID,
		&a.WarehouseID,
		&a.QuantityChange,
		&a.QuantityBefore,
		&a.QuantityAfter,
		&a.Type,
		&a.Reason,
		&a.Notes,
		&a.Status,
		&a.Applied,
		&a.AppliedAt,
		&a.PerformedBy,
		&a.ApprovedBy,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
}

// Create inserts a new adjustment at version 1.
func (r *AdjustmentRepository) Create(ctx context.Context, a *domain.StockAdjustment) error {
	a.Version = 1
	query := `INSERT INTO stock_adjustments (` + adjustmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.ProductID,
		a.WarehouseID,
		a.QuantityChange,
		a.QuantityBefore,
		a.QuantityAfter,
		a.Type,
		a.Reason,
		a.Notes,
		a.Status,
		a.Applied,
		a.AppliedAt,
		a.PerformedBy,
		a.ApprovedBy,
		a.Version,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock adjustment: %w", err)
	}
	return nil
}

// GetByID retrieves an adjustment by its ID.
func (r *AdjustmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.StockAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM stock_adjustments WHERE id = $1`

	var a domain.StockAdjustment
	if err := scanAdjustment(r.pool.QueryRow(ctx, query, id), &a); err != nil {
		return nil, noRows(err, "get stock adjustment", "stock adjustment", id.String())
	}
	return &a, nil
}

// Update writes the adjustment if its stored version equals a.Version.
func (r *AdjustmentRepository) Update(ctx context.Context, a *domain.StockAdjustment) error {
	query := `
		UPDATE stock_adjustments
		SET quantity_before = $3, quantity_after = $4, notes = $5, status = $6, applied = $7, applied_at = $8,
			approved_by = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $2`

	tag, err := r.pool.Exec(ctx, query,
		a.ID,
		a.Version,
		a.QuantityBefore,
		a.QuantityAfter,
		a.Notes,
		a.Status,
		a.Applied,
		a.AppliedAt,
		a.ApprovedBy,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update stock adjustment: %w", err)
	}
	if err := casResult(tag, "stock adjustment", a.ID.String()); err != nil {
		return err
	}
	a.Version++
	return nil
}

// List returns adjustments, newest first.
func (r *AdjustmentRepository) List(ctx context.Context, filter domain.AdjustmentFilter) ([]domain.StockAdjustment, error) {
	var w where
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if filter.ProductID != nil {
		w.add("product_id = $%d", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		w.add("warehouse_id = $%d", *filter.WarehouseID)
	}

	query := fmt.Sprintf(`SELECT %s FROM stock_adjustments %s ORDER BY created_at DESC`, adjustmentColumns, w.clause())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list stock adjustments: %w", err)
	}
	defer rows.Close()

	adjustments := make([]domain.StockAdjustment, 0)
	for rows.Next() {
		var a domain.StockAdjustment
		if err := scanAdjustment(rows, &a); err != nil {
			return nil, fmt.Errorf("scan stock adjustment: %w", err)
		}
		adjustments = append(adjustments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock adjustments: %w", err)
	}
	return adjustments, nil
}
