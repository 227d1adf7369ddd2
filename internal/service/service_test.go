package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/identity"
	"github.com/utafrali/InventoryGo/internal/repository"
	"github.com/utafrali/InventoryGo/internal/repository/memory"
	"github.com/utafrali/InventoryGo/pkg/retry"
)

var errInjected = errors.New("injected failure")

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPolicy() retry.Policy {
	return retry.Policy{Attempts: 3, InitialDelay: 0, MaxDelay: 0}
}

// deps are the repositories a fixture wires; tests swap individual ones for
// failure-injecting wrappers.
type deps struct {
	stock       repository.StockRepository
	adjustments repository.AdjustmentRepository
	purchases   repository.PurchaseOrderRepository
	salesOrders repository.SalesOrderRepository
	shipments   repository.ShipmentRepository
	invoices    repository.InvoiceRepository
	payments    repository.PaymentRepository
}

type fixture struct {
	repos memory.Repositories

	ledger      *LedgerService
	transfers   *TransferService
	adjustments *AdjustmentService
	purchases   *PurchaseOrderService
	sales       *SalesOrderService
	shipments   *ShipmentService
	billing     *BillingService
	payments    *PaymentService
	catalog     *CatalogService
	categories  *CategoryService

	product    *domain.Product
	other      *domain.Product
	warehouseA *domain.Warehouse
	warehouseB *domain.Warehouse
	supplier   *domain.Supplier
	user       uuid.UUID
}

func newFixture(t *testing.T, overrides ...func(*deps)) *fixture {
	t.Helper()
	repos := memory.NewStore().Repositories()
	d := &deps{
		stock:       repos.Stock,
		adjustments: repos.Adjustments,
		purchases:   repos.PurchaseOrders,
		salesOrders: repos.SalesOrders,
		shipments:   repos.Shipments,
		invoices:    repos.Invoices,
		payments:    repos.Payments,
	}
	for _, o := range overrides {
		o(d)
	}

	logger := newTestLogger()
	policy := testPolicy()
	resolver := identity.StaticResolver{}
	numbers := NewNumberGenerator(repos.Sequences, nil)

	f := &fixture{repos: repos, user: uuid.New()}
	f.ledger = NewLedgerService(d.stock, repos.Products, repos.Categories, nil, nil, nil, policy, logger)
	f.transfers = NewTransferService(f.ledger, repos.Products, repos.Warehouses, resolver, logger)
	f.adjustments = NewAdjustmentService(d.adjustments, repos.Products, repos.Warehouses, f.ledger, resolver, logger)
	f.purchases = NewPurchaseOrderService(d.purchases, repos.Products, repos.Warehouses, repos.Suppliers, f.ledger, numbers, resolver, nil, logger)
	f.sales = NewSalesOrderService(d.salesOrders, repos.Products, repos.Warehouses, f.ledger, numbers, resolver, nil, logger)
	f.shipments = NewShipmentService(d.shipments, f.sales, numbers, policy, logger)
	f.billing = NewBillingService(d.invoices, d.salesOrders, numbers, nil, logger)
	f.payments = NewPaymentService(d.payments, f.billing, numbers, nil, policy, logger)
	f.catalog = NewCatalogService(repos.Products, repos.Warehouses, repos.Categories, repos.Suppliers, logger)
	f.categories = NewCategoryService(repos.Categories, repos.Products, logger)

	ctx := context.Background()
	var err error
	f.product, err = f.catalog.CreateProduct(ctx, ProductInput{
		SKU: "SKU-P", Name: "Widget", UnitPrice: decimal.NewFromInt(10), CostPrice: decimal.NewFromInt(6),
		ReorderLevel: 10, MinStockLevel: 2, IsActive: true,
	})
	require.NoError(t, err)
	f.other, err = f.catalog.CreateProduct(ctx, ProductInput{
		SKU: "SKU-Q", Name: "Gadget", UnitPrice: decimal.NewFromInt(20), CostPrice: decimal.NewFromInt(15),
		ReorderLevel: 5, MinStockLevel: 1, IsActive: true,
	})
	require.NoError(t, err)
	f.warehouseA, err = f.catalog.CreateWarehouse(ctx, WarehouseInput{Code: "W1", Name: "Main"})
	require.NoError(t, err)
	f.warehouseB, err = f.catalog.CreateWarehouse(ctx, WarehouseInput{Code: "W2", Name: "Overflow"})
	require.NoError(t, err)
	f.supplier, err = f.catalog.CreateSupplier(ctx, SupplierInput{Code: "ACME", Name: "Acme Supply", Email: "orders@acme.test"})
	require.NoError(t, err)
	return f
}

// stock seeds qty units of product at warehouse through the ledger.
func (f *fixture) stock(t *testing.T, product *domain.Product, warehouse *domain.Warehouse, qty int) {
	t.Helper()
	_, err := f.ledger.AddStock(context.Background(), StockChange{
		ProductID:    product.ID,
		WarehouseID:  warehouse.ID,
		Quantity:     qty,
		MovementType: domain.MovementReceipt,
		Reason:       "seed",
	})
	require.NoError(t, err)
}

func (f *fixture) quantity(t *testing.T, product *domain.Product, warehouse *domain.Warehouse) int {
	t.Helper()
	qty, err := f.ledger.GetQuantity(context.Background(), product.ID, warehouse.ID)
	require.NoError(t, err)
	return qty
}

// --- Failure injection ---

// flakyStock fails writes whose movement matches fail.
type flakyStock struct {
	repository.StockRepository
	fail func(mv *domain.Movement) bool
}

func (r *flakyStock) Create(ctx context.Context, rec *domain.StockRecord, mv *domain.Movement) error {
	if r.fail(mv) {
		return errInjected
	}
	return r.StockRepository.Create(ctx, rec, mv)
}

func (r *flakyStock) UpdateQuantity(ctx context.Context, id uuid.UUID, version int64, qty int, mv *domain.Movement) (*domain.StockRecord, error) {
	if r.fail(mv) {
		return nil, errInjected
	}
	return r.StockRepository.UpdateQuantity(ctx, id, version, qty, mv)
}

// failingSalesOrders fails Update when the order is being moved to status.
type failingSalesOrders struct {
	repository.SalesOrderRepository
	status domain.SalesOrderStatus
}

func (r *failingSalesOrders) Update(ctx context.Context, o *domain.SalesOrder) error {
	if o.Status == r.status {
		return errInjected
	}
	return r.SalesOrderRepository.Update(ctx, o)
}

type failingPurchaseOrders struct {
	repository.PurchaseOrderRepository
}

func (r *failingPurchaseOrders) Update(ctx context.Context, o *domain.PurchaseOrder) error {
	for _, it := range o.Items {
		if it.QuantityReceived > 0 {
			return errInjected
		}
	}
	return r.PurchaseOrderRepository.Update(ctx, o)
}

type failingAdjustments struct {
	repository.AdjustmentRepository
}

func (r *failingAdjustments) Update(ctx context.Context, a *domain.StockAdjustment) error {
	if a.Applied {
		return errInjected
	}
	return r.AdjustmentRepository.Update(ctx, a)
}

type failingInvoices struct {
	repository.InvoiceRepository
}

func (r *failingInvoices) Update(ctx context.Context, inv *domain.Invoice) error {
	return errInjected
}
