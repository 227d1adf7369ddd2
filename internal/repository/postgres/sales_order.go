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

// SalesOrderRepository implements repository.SalesOrderRepository using PostgreSQL.
type SalesOrderRepository struct {
	pool database.DBTX
}

// NewSalesOrderRepository creates a new PostgreSQL-backed sales order repository.
func NewSalesOrderRepository(pool database.DBTX) *SalesOrderRepository {
	return &SalesOrderRepository{pool: pool}
}

const (
	salesOrderColumns = `id, number, customer_id, customer_name, customer_email, warehouse_id, status, subtotal, tax_amount, shipping_cost,
	total_amount, order_date, required_date, shipping_address, notes, created_by, version, created_at, updated_at`

	salesOrderItemColumns = `id, sales_order_id, product_id, quantity, unit_price`
)

func scanSalesOrder(row pgx.Row, o *domain.SalesOrder) error {
	return row.Scan(
		&o.ID,
		&o.Number,
		&o.CustomerID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.WarehouseID,
		&o.Status,
		&o.Subtotal,
		&o.TaxAmount,
		&o.ShippingCost,
		&o.TotalAmount,
		&o.OrderDate,
		&o.RequiredDate,
		&o.ShippingAddress,
		&o.Notes,
		&o.CreatedBy,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

// Create inserts a sales order and its items in a single transaction.
func (r *SalesOrderRepository) Create(ctx context.Context, o *domain.SalesOrder) error {
	o.Version = 1
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `INSERT INTO sales_orders (` + salesOrderColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

		_, err := tx.Exec(ctx, query,
			o.ID,
			o.Number,
			o.CustomerID,
			o.CustomerName,
			o.CustomerEmail,
			o.WarehouseID,
			o.Status,
			o.Subtotal,
			o.TaxAmount,
			o.ShippingCost,
			o.TotalAmount,
			o.OrderDate,
			o.RequiredDate,
			o.ShippingAddress,
			o.Notes,
			o.CreatedBy,
			o.Version,
			o.CreatedAt,
			o.UpdatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.AlreadyExists("sales order", "number", o.Number)
			}
			return fmt.Errorf("insert sales order: %w", err)
		}
		return insertSalesOrderItems(ctx, tx, o)
	})
}

func insertSalesOrderItems(ctx context.Context, tx pgx.Tx, o *domain.SalesOrder) error {
	query := `INSERT INTO sales_order_items (` + salesOrderItemColumns + `, position) VALUES ($1, $2, $3, $4, $5, $6)`
	for i, item := range o.Items {
		_, err := tx.Exec(ctx, query, item.ID, o.ID, item.ProductID, item.Quantity, item.UnitPrice, i)
		if err != nil {
			return fmt.Errorf("insert sales order item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a sales order with its items.
func (r *SalesOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SalesOrder, error) {
	query := `SELECT ` + salesOrderColumns + ` FROM sales_orders WHERE id = $1`

	var o domain.SalesOrder
	if err := scanSalesOrder(r.pool.QueryRow(ctx, query, id), &o); err != nil {
		return nil, noRows(err, "get sales order", "sales order", id.String())
	}

	items, err := r.loadItems(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *SalesOrderRepository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.SalesOrderItem, error) {
	query := `SELECT ` + salesOrderItemColumns + ` FROM sales_order_items WHERE sales_order_id = ANY($1) ORDER BY position`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list sales order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.SalesOrderItem, len(orderIDs))
	for rows.Next() {
		var (
			item    domain.SalesOrderItem
			orderID uuid.UUID
		)
		if err := rows.Scan(&item.ID, &orderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan sales order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales order items: %w", err)
	}
	return items, nil
}

// Update writes the header if the stored version equals o.Version and
// replaces the item set in the same transaction.
func (r *SalesOrderRepository) Update(ctx context.Context, o *domain.SalesOrder) error {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE sales_orders
			SET customer_name = $3, customer_email = $4, status = $5, subtotal = $6, tax_amount = $7, shipping_cost = $8,
				total_amount = $9, required_date = $10, shipping_address = $11, notes = $12, updated_at = $13,
				version = version + 1
			WHERE id = $1 AND version = $2`

		tag, err := tx.Exec(ctx, query,
			o.ID,
			o.Version,
			o.CustomerName,
			o.CustomerEmail,
			o.Status,
			o.Subtotal,
			o.TaxAmount,
			o.ShippingCost,
			o.TotalAmount,
			o.RequiredDate,
			o.ShippingAddress,
			o.Notes,
			o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update sales order: %w", err)
		}
		if err := casResult(tag, "sales order", o.ID.String()); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM sales_order_items WHERE sales_order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("delete sales order items: %w", err)
		}
		return insertSalesOrderItems(ctx, tx, o)
	})
	if err != nil {
		return err
	}
	o.Version++
	return nil
}

// List returns sales orders with their items, newest first.
func (r *SalesOrderRepository) List(ctx context.Context, filter domain.SalesOrderFilter) ([]domain.SalesOrder, error) {
	var w where
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if filter.CustomerID != nil {
		w.add("customer_id = $%d", *filter.CustomerID)
	}
	if filter.WarehouseID != nil {
		w.add("warehouse_id = $%d", *filter.WarehouseID)
	}

	query := fmt.Sprintf(`SELECT %s FROM sales_orders %s ORDER BY created_at DESC`, salesOrderColumns, w.clause())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list sales orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.SalesOrder, 0)
	for rows.Next() {
		var o domain.SalesOrder
		if err := scanSalesOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan sales order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales orders: %w", err)
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
