package app

import (
	"github.com/utafrali/InventoryGo/internal/repository"
	"github.com/utafrali/InventoryGo/internal/repository/memory"
	"github.com/utafrali/InventoryGo/internal/repository/postgres"
	"github.com/utafrali/InventoryGo/pkg/database"
)

// repositories is the storage the services are built on, independent of the
// driver behind it.
type repositories struct {
	products    repository.ProductRepository
	warehouses  repository.WarehouseRepository
	suppliers   repository.SupplierRepository
	categories  repository.CategoryRepository
	stock       repository.StockRepository
	adjustments repository.AdjustmentRepository
	purchases   repository.PurchaseOrderRepository
	salesOrders repository.SalesOrderRepository
	shipments   repository.ShipmentRepository
	invoices    repository.InvoiceRepository
	payments    repository.PaymentRepository
	sequences   repository.SequenceRepository
}

func postgresRepositories(db database.DBTX) repositories {
	return repositories{
		products:    postgres.NewProductRepository(db),
		warehouses:  postgres.NewWarehouseRepository(db),
		suppliers:   postgres.NewSupplierRepository(db),
		categories:  postgres.NewCategoryRepository(db),
		stock:       postgres.NewStockRepository(db),
		adjustments: postgres.NewAdjustmentRepository(db),
		purchases:   postgres.NewPurchaseOrderRepository(db),
		salesOrders: postgres.NewSalesOrderRepository(db),
		shipments:   postgres.NewShipmentRepository(db),
		invoices:    postgres.NewInvoiceRepository(db),
		payments:    postgres.NewPaymentRepository(db),
		sequences:   postgres.NewSequenceRepository(db),
	}
}

func memoryRepositories() repositories {
	r := memory.NewStore().Repositories()
	return repositories{
		products:    r.Products,
		warehouses:  r.Warehouses,
		suppliers:   r.Suppliers,
		categories:  r.Categories,
		stock:       r.Stock,
		adjustments: r.Adjustments,
		purchases:   r.PurchaseOrders,
		salesOrders: r.SalesOrders,
		shipments:   r.Shipments,
		invoices:    r.Invoices,
		payments:    r.Payments,
		sequences:   r.Sequences,
	}
}
