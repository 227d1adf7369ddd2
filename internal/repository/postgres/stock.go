package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/pkg/database"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// StockRepository implements repository.StockRepository using PostgreSQL.
type StockRepository struct {
	pool database.DBTX
}

// NewStockRepository creates a new PostgreSQL-backed stock repository.
func NewStockRepository(pool database.DBTX) *StockRepository {
	return &StockRepository{pool: pool}
}

const (
	stockColumns = `id, product_id, warehouse_id, quantity, version, location_code, created_at, updated_at`

	insertStockSQL = `
		INSERT INTO stock (` + stockColumns + `)
		VALUES ($1, $2, $3, $4, 1, $5, NOW(), NOW())
		RETURNING version, created_at, updated_at`

	updateStockSQL = `
		UPDATE stock
		SET quantity = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + stockColumns

	insertMovementSQL = `
		INSERT INTO stock_movements (id, product_id, from_warehouse_id, to_warehouse_id, quantity, type, reference, reason, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
)

func scanStock(row pgx.Row, s *domain.StockRecord) error {
	return row.Scan(
		&s.ID,
		&s.ProductID,
		&s.WarehouseID,
		&s.Quantity,
		&s.Version,
		&s.LocationCode,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

// Get retrieves the stock record for a product at a warehouse.
func (r *StockRepository) Get(ctx context.Context, productID, warehouseID uuid.UUID) (*domain.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stock WHERE product_id = $1 AND warehouse_id = $2`

	var s domain.StockRecord
	if err := scanStock(r.pool.QueryRow(ctx, query, productID, warehouseID), &s); err != nil {
		return nil, noRows(err, "get stock", "stock record", productID.String())
	}
	return &s, nil
}

// Create inserts the first record for a (product, warehouse) pair and its
// movement in one transaction. A unique violation means another writer
// created the pair first.
func (r *StockRepository) Create(ctx context.Context, rec *domain.StockRecord, mv *domain.Movement) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateStock", insertStockSQL)
	defer func() { end(err) }()

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertStockSQL,
			rec.ID,
			rec.ProductID,
			rec.WarehouseID,
			rec.Quantity,
			rec.LocationCode,
		).Scan(&rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.ConcurrentModification("stock record", rec.ProductID.String())
			}
			return fmt.Errorf("insert stock: %w", err)
		}
		return insertMovement(ctx, tx, mv)
	})
}

// UpdateQuantity writes quantity only if the row still carries
// expectedVersion. The movement is inserted in the same transaction so a
// lost race leaves no trace in the log.
func (r *StockRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, expectedVersion int64, quantity int, mv *domain.Movement) (_ *domain.StockRecord, err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateStockQuantity", updateStockSQL)
	defer func() { end(err) }()

	var s domain.StockRecord
	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := scanStock(tx.QueryRow(ctx, updateStockSQL, id, expectedVersion, quantity), &s); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ConcurrentModification("stock record", id.String())
			}
			return fmt.Errorf("update stock quantity: %w", err)
		}
		return insertMovement(ctx, tx, mv)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func insertMovement(ctx context.Context, q querier, mv *domain.Movement) error {
	if mv == nil {
		return nil
	}
	_, err := q.Exec(ctx, insertMovementSQL,
		mv.ID,
		mv.ProductID,
		mv.FromWarehouseID,
		mv.ToWarehouseID,
		mv.Quantity,
		mv.Type,
		mv.Reference,
		mv.Reason,
		mv.PerformedBy,
		mv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// List returns stock records joined with their product.
func (r *StockRepository) List(ctx context.Context, filter domain.StockFilter) ([]domain.StockLevel, error) {
	var w where
	if filter.ProductID != nil {
		w.add("s.product_id = $%d", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		w.add("s.warehouse_id = $%d", *filter.WarehouseID)
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.product_id, s.warehouse_id, s.quantity, s.version, s.location_code, s.created_at, s.updated_at,
			p.sku, p.name, p.reorder_level, p.min_stock_level
		FROM stock s
		JOIN products p ON p.id = s.product_id
		%s
		ORDER BY p.sku, s.warehouse_id`, w.clause())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()

	levels := make([]domain.StockLevel, 0)
	for rows.Next() {
		var l domain.StockLevel
		if err := rows.Scan(
			&l.ID, &l.ProductID, &l.WarehouseID, &l.Quantity, &l.Version, &l.LocationCode, &l.CreatedAt, &l.UpdatedAt,
			&l.SKU, &l.ProductName, &l.ReorderLevel, &l.MinStockLevel,
		); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock levels: %w", err)
	}
	return levels, nil
}

// ListMovements returns the movement log, newest first.
func (r *StockRepository) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	var w where
	if filter.ProductID != nil {
		w.add("product_id = $%d", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		w.add("(from_warehouse_id = $%[1]d OR to_warehouse_id = $%[1]d)", *filter.WarehouseID)
	}
	if filter.Type != "" {
		w.add("type = $%d", filter.Type)
	}
	if filter.Reference != "" {
		w.add("reference = $%d", filter.Reference)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args := append(w.args, limit)

	query := fmt.Sprintf(`
		SELECT id, product_id, from_warehouse_id, to_warehouse_id, quantity, type, reference, reason, performed_by, created_at
		FROM stock_movements
		%s
		ORDER BY created_at DESC
		LIMIT $%d`, w.clause(), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	movements := make([]domain.Movement, 0)
	for rows.Next() {
		var m domain.Movement
		if err := rows.Scan(
			&m.ID,
			&m.ProductID,
			&m.FromWarehouseID,
			&m.ToWarehouseID,
			&m.Quantity,
			&m.Type,
			&m.Reference,
			&m.Reason,
			&m.PerformedBy,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock movements: %w", err)
	}
	return movements, nil
}

// ValuationLines returns quantity and prices for every active product's stock.
func (r *StockRepository) ValuationLines(ctx context.Context, filter domain.ValuationFilter) ([]domain.ValuationLine, error) {
	w := where{conds: []string{"p.is_active"}}
	if filter.WarehouseID != nil {
		w.add("s.warehouse_id = $%d", *filter.WarehouseID)
	}
	if len(filter.CategoryIDs) > 0 {
		w.add("p.category_id = ANY($%d)", filter.CategoryIDs)
	}
	query := fmt.Sprintf(`
		SELECT s.product_id, s.quantity, p.unit_price, p.cost_price
		FROM stock s
		JOIN products p ON p.id = s.product_id
		%s`, w.clause())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("valuation lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.ValuationLine
	for rows.Next() {
		var l domain.ValuationLine
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.UnitPrice, &l.CostPrice); err != nil {
			return nil, fmt.Errorf("scan valuation line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate valuation lines: %w", err)
	}
	return lines, nil
}
