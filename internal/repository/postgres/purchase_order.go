package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/pkg/database"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// PurchaseOrderRepository implements repository.PurchaseOrderRepository using PostgreSQL.
type PurchaseOrderRepository struct {
	pool database.DBTX
}

// NewPurchaseOrderRepository creates a new PostgreSQL-backed purchase order repository.
func NewPurchaseOrderRepository(pool database.DBTX) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{pool: pool}
}

const (
	purchaseOrderColumns = `id, number, supplier_id, warehouse_id, status, subtotal, tax_amount, discount_amount, total_amount,
	order_date, expected_delivery_date, actual_delivery_date, notes, created_by, approved_by, version, created_at, updated_at`

	purchaseOrderItemColumns = `id, purchase_order_id, product_id, quantity_ordered, quantity_received, unit_price`
)

func scanPurchaseOrder(row pgx.Row, o *domain.PurchaseOrder) error {
	return row.Scan(
		&o.ID,
		&o.Number,
		&o.SupplierID,
		&o.WarehouseID,
		&o.Status,
		&o.Subtotal,
		&o.TaxAmount,
		&o.DiscountAmount,
		&o.TotalAmount,
		&o.OrderDate,
		&o.ExpectedDeliveryDate,
		&o.ActualDeliveryDate,
		&o.Notes,
		&o.CreatedBy,
		&o.ApprovedBy,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

// Create inserts a purchase order and its items in a single transaction.
func (r *PurchaseOrderRepository) Create(ctx context.Context, o *domain.PurchaseOrder) error {
	o.Version = 1
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `INSERT INTO purchase_orders (` + purchaseOrderColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

		_, err := tx.Exec(ctx, query,
			o.ID,
			o.Number,
			o.SupplierID,
			o.WarehouseID,
			o.Status,
			o.Subtotal,
			o.TaxAmount,
			o.DiscountAmount,
			o.TotalAmount,
			o.OrderDate,
			o.ExpectedDeliveryDate,
			o.ActualDeliveryDate,
			o.Notes,
			o.CreatedBy,
			o.ApprovedBy,
			o.Version,
			o.CreatedAt,
			o.UpdatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.AlreadyExists("purchase order", "number", o.Number)
			}
			return fmt.Errorf("insert purchase order: %w", err)
		}
		return insertPurchaseOrderItems(ctx, tx, o)
	})
}

func insertPurchaseOrderItems(ctx context.Context, tx pgx.Tx, o *domain.PurchaseOrder) error {
	query := `INSERT INTO purchase_order_items (` + purchaseOrderItemColumns + `, position) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, item := range o.Items {
		_, err := tx.Exec(ctx, query,
			item.ID,
			o.ID,
			item.ProductID,
			item.QuantityOrdered,
			item.QuantityReceived,
			item.UnitPrice,
			i,
		)
		if err != nil {
			return fmt.Errorf("insert purchase order item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a purchase order with its items.
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	query := `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders WHERE id = $1`

	var o domain.PurchaseOrder
	if err := scanPurchaseOrder(r.pool.QueryRow(ctx, query, id), &o); err != nil {
		return nil, noRows(err, "get purchase order", "purchase order", id.String())
	}

	items, err := r.loadItems(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *PurchaseOrderRepository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.PurchaseOrderItem, error) {
	query := `SELECT ` + purchaseOrderItemColumns + ` FROM purchase_order_items WHERE purchase_order_id = ANY($1) ORDER BY position`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list purchase order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.PurchaseOrderItem, len(orderIDs))
	for rows.Next() {
		var (
			item    domain.PurchaseOrderItem
			orderID uuid.UUID
		)
		if err := rows.Scan(
			&item.ID,
			&orderID,
			&item.ProductID,
			&item.QuantityOrdered,
			&item.QuantityReceived,
			&item.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("scan purchase order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase order items: %w", err)
	}
	return items, nil
}

// Update writes the header if the stored version equals o.Version and
// replaces the item set in the same transaction.
func (r *PurchaseOrderRepository) Update(ctx context.Context, o *domain.PurchaseOrder) error {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE purchase_orders
			SET supplier_id = $3, warehouse_id = $4, status = $5, subtotal = $6, tax_amount = $7, discount_amount = $8,
				total_amount = $9, expected_delivery_date = $10, actual_delivery_date = $11, notes = $12, approved_by = $13,
				updated_at = $14, version = version + 1
			WHERE id = $1 AND version = $2`

		tag, err := tx.Exec(ctx, query,
			o.ID,
			o.Version,
			o.SupplierID,
			o.WarehouseID,
			o.Status,
			o.Subtotal,
			o.TaxAmount,
			o.DiscountAmount,
			o.TotalAmount,
			o.ExpectedDeliveryDate,
			o.ActualDeliveryDate,
			o.Notes,
			o.ApprovedBy,
			o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update purchase order: %w", err)
		}
		if err := casResult(tag, "purchase order", o.ID.String()); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE purchase_order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("delete purchase order items: %w", err)
		}
		return insertPurchaseOrderItems(ctx, tx, o)
	})
	if err != nil {
		return err
	}
	o.Version++
	return nil
}

// Delete removes a purchase order and its items.
func (r *PurchaseOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("purchase order", id.String())
	}
	return nil
}

// List returns purchase orders with their items, newest first.
func (r *PurchaseOrderRepository) List(ctx context.Context, filter domain.PurchaseOrderFilter) ([]domain.PurchaseOrder, error) {
	var w where
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if filter.SupplierID != nil {
		w.add("supplier_id = $%d", *filter.SupplierID)
	}
	if filter.WarehouseID != nil {
		w.add("warehouse_id = $%d", *filter.WarehouseID)
	}

	query := fmt.Sprintf(`SELECT %s FROM purchase_orders %s ORDER BY created_at DESC`, purchaseOrderColumns, w.clause())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.PurchaseOrder, 0)
	for rows.Next() {
		var o domain.PurchaseOrder
		if err := scanPurchaseOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase orders: %w", err)
	}
	rows.Close()

	if len(orders) == 0 {
		return orders, nil
	}
	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}
