// Package memory implements the repository contracts in process memory. It
// keeps the same compare-and-swap semantics as the PostgreSQL repositories
// and is used for local runs and service tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// Store holds every entity behind one mutex.
type Store struct {
	mu sync.RWMutex

	products    map[uuid.UUID]domain.Product
	warehouses  map[uuid.UUID]domain.Warehouse
	suppliers   map[uuid.UUID]domain.Supplier
	stock       map[stockKey]domain.StockRecord
	movements   []domain.Movement
	adjustments map[uuid.UUID]domain.StockAdjustment
	purchases   map[uuid.UUID]domain.PurchaseOrder
	sales       map[uuid.UUID]domain.SalesOrder
	shipments   map[uuid.UUID]domain.Shipment
	invoices    map[uuid.UUID]domain.Invoice
	payments    map[uuid.UUID]domain.Payment
	categories  map[uuid.UUID]domain.Category
	sequences   map[string]int

	now func() time.Time
}

type stockKey struct {
	productID   uuid.UUID
	warehouseID uuid.UUID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		products:    make(map[uuid.UUID]domain.Product),
		warehouses:  make(map[uuid.UUID]domain.Warehouse),
		suppliers:   make(map[uuid.UUID]domain.Supplier),
		stock:       make(map[stockKey]domain.StockRecord),
		adjustments: make(map[uuid.UUID]domain.StockAdjustment),
		purchases:   make(map[uuid.UUID]domain.PurchaseOrder),
		sales:       make(map[uuid.UUID]domain.SalesOrder),
		shipments:   make(map[uuid.UUID]domain.Shipment),
		invoices:    make(map[uuid.UUID]domain.Invoice),
		payments:    make(map[uuid.UUID]domain.Payment),
		categories:  make(map[uuid.UUID]domain.Category),
		sequences:   make(map[string]int),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Repositories returns every repository view of the store.
func (s *Store) Repositories() Repositories {
	return Repositories{
		Products:       &ProductRepository{s},
		Warehouses:     &WarehouseRepository{s},
		Suppliers:      &SupplierRepository{s},
		Stock:          &StockRepository{s},
		Adjustments:    &AdjustmentRepository{s},
		PurchaseOrders: &PurchaseOrderRepository{s},
		SalesOrders:    &SalesOrderRepository{s},
		Shipments:      &ShipmentRepository{s},
		Invoices:       &InvoiceRepository{s},
		Payments:       &PaymentRepository{s},
		Categories:     &CategoryRepository{s},
		Sequences:      &SequenceRepository{s},
	}
}

// Repositories groups the typed views of one Store.
type Repositories struct {
	Products       *ProductRepository
	Warehouses     *WarehouseRepository
	Suppliers      *SupplierRepository
	Stock          *StockRepository
	Adjustments    *AdjustmentRepository
	PurchaseOrders *PurchaseOrderRepository
	SalesOrders    *SalesOrderRepository
	Shipments      *ShipmentRepository
	Invoices       *InvoiceRepository
	Payments       *PaymentRepository
	Categories     *CategoryRepository
	Sequences      *SequenceRepository
}

func notFound(resource string, id uuid.UUID) error {
	return apperrors.NotFound(resource, id.String())
}

func conflict(resource string, id uuid.UUID) error {
	return apperrors.ConcurrentModification(resource, id.String())
}

// casVersion checks the caller's version against the stored one and bumps
// both on success.
func casVersion(resource string, id uuid.UUID, stored int64, given *int64) error {
	if stored != *given {
		return conflict(resource, id)
	}
	*given = stored + 1
	return nil
}

func clonePurchaseOrder(o domain.PurchaseOrder) domain.PurchaseOrder {
	o.Items = slices.Clone(o.Items)
	return o
}

func cloneSalesOrder(o domain.SalesOrder) domain.SalesOrder {
	o.Items = slices.Clone(o.Items)
	return o
}

func sortByCreated[T any](items []T, created func(T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		return created(b).Compare(created(a))
	})
}

// ---------------------------------------------------------------------------
// Sequences
// ---------------------------------------------------------------------------

// SequenceRepository hands out per-day counters.
type SequenceRepository struct{ s *Store }

func (r *SequenceRepository) Next(_ context.Context, prefix string, day time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := fmt.Sprintf("%s-%s", prefix, day.Format("20060102"))
	r.s.sequences[key]++
	return r.s.sequences[key], nil
}

func notFoundKey(resource, key string) error {
	return apperrors.NotFound(resource, key)
}
