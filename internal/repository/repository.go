// Package repository declares the persistence contracts used by the
// services. Every Update on a versioned entity is a compare-and-swap on the
// entity's Version: it succeeds only when the stored version still equals
// the one the caller read, bumps the version on the entity it was given, and
// fails with apperrors.ErrConcurrentModification otherwise.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
)

// ProductRepository persists catalog products.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)

	// CountByCategories counts products assigned to any of the categories.
	CountByCategories(ctx context.Context, categoryIDs []uuid.UUID) (int, error)
}

// WarehouseRepository persists warehouses.
type WarehouseRepository interface {
	Create(ctx context.Context, w *domain.Warehouse) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Warehouse, error)
	GetByCode(ctx context.Context, code string) (*domain.Warehouse, error)
	List(ctx context.Context) ([]domain.Warehouse, error)
}

// SupplierRepository persists suppliers. Create and Update fail with
// ErrAlreadyExists when the code or email is taken.
type SupplierRepository interface {
	Create(ctx context.Context, s *domain.Supplier) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error)
	GetByCode(ctx context.Context, code string) (*domain.Supplier, error)
	Update(ctx context.Context, s *domain.Supplier) error
	List(ctx context.Context, filter domain.SupplierFilter) ([]domain.Supplier, error)
	CountActive(ctx context.Context) (int, error)
}

// StockRepository persists stock records and their movement log.
type StockRepository interface {
	// Get returns the record for the pair or ErrNotFound.
	Get(ctx context.Context, productID, warehouseID uuid.UUID) (*domain.StockRecord, error)

	// Create inserts a new record at version 1 together with mv, if any.
	// Losing a creation race to another writer yields
	// ErrConcurrentModification.
	Create(ctx context.Context, rec *domain.StockRecord, mv *domain.Movement) error

	// UpdateQuantity sets the quantity of record id if its version still
	// equals expectedVersion and records mv, if any, in the same transaction.
	UpdateQuantity(ctx context.Context, id uuid.UUID, expectedVersion int64, quantity int, mv *domain.Movement) (*domain.StockRecord, error)

	List(ctx context.Context, filter domain.StockFilter) ([]domain.StockLevel, error)
	ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error)
	ValuationLines(ctx context.Context, filter domain.ValuationFilter) ([]domain.ValuationLine, error)
}

// AdjustmentRepository persists stock adjustments.
type AdjustmentRepository interface {
	Create(ctx context.Context, a *domain.StockAdjustment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StockAdjustment, error)
	Update(ctx context.Context, a *domain.StockAdjustment) error
	List(ctx context.Context, filter domain.AdjustmentFilter) ([]domain.StockAdjustment, error)
}

// PurchaseOrderRepository persists purchase orders with their items.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, o *domain.PurchaseOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error)
	// Update writes the header and replaces the item set.
	Update(ctx context.Context, o *domain.PurchaseOrder) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter domain.PurchaseOrderFilter) ([]domain.PurchaseOrder, error)
}

// SalesOrderRepository persists sales orders with their items.
type SalesOrderRepository interface {
	Create(ctx context.Context, o *domain.SalesOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SalesOrder, error)
	// Update writes the header and replaces the item set.
	Update(ctx context.Context, o *domain.SalesOrder) error
	List(ctx context.Context, filter domain.SalesOrderFilter) ([]domain.SalesOrder, error)
}

// ShipmentRepository persists shipments.
type ShipmentRepository interface {
	Create(ctx context.Context, s *domain.Shipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Shipment, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Shipment, error)
	Update(ctx context.Context, s *domain.Shipment) error
	List(ctx context.Context, filter domain.ShipmentFilter) ([]domain.Shipment, error)

	// ListOverdue returns non-terminal shipments estimated before asOf.
	ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Shipment, error)
}

// InvoiceRepository persists invoices.
type InvoiceRepository interface {
	// Create fails with ErrAlreadyExists when the sales order already has an
	// invoice.
	Create(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	GetBySalesOrderID(ctx context.Context, salesOrderID uuid.UUID) (*domain.Invoice, error)
	Update(ctx context.Context, inv *domain.Invoice) error

	// UpdateWithPayment applies the invoice compare-and-swap and inserts p
	// atomically. When the swap fails p is not stored.
	UpdateWithPayment(ctx context.Context, inv *domain.Invoice, p *domain.Payment) error

	List(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error)

	// ListOverdue returns SENT and PARTIAL invoices due before asOf.
	ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Invoice, error)
}

// PaymentRepository persists payments.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) error
	List(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error)
}

// CategoryRepository persists product categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]domain.Category, error)
}

// SequenceRepository hands out per-day document counters.
type SequenceRepository interface {
	// Next returns the next value of the counter for prefix on day, starting
	// at 1.
	Next(ctx context.Context, prefix string, day time.Time) (int, error)
}
