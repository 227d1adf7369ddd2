package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/InventoryGo/pkg/health"
	"github.com/utafrali/InventoryGo/pkg/idempotency"
	"github.com/utafrali/InventoryGo/pkg/middleware"
	"github.com/utafrali/InventoryGo/pkg/retry"
)

// RouterConfig wires the router's dependencies. Metrics, MetricsHandler and
// RateLimitRPS are optional.
type RouterConfig struct {
	Services       Services
	Health         *health.Handler
	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
	Metrics        *middleware.HTTPMetrics
	MetricsHandler http.Handler
	RateLimitRPS   float64
	RateLimitBurst int
	RetryPolicy    retry.Policy
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all inventory routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Tracing())
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Logger))
	}
	r.Use(middleware.RequestLogging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	b := base{policy: cfg.RetryPolicy, logger: cfg.Logger}
	stock := NewStockHandler(cfg.Services, b)
	orders := NewOrderHandler(cfg.Services, b)
	billing := NewBillingHandler(cfg.Services, b)
	catalog := NewCatalogHandler(cfg.Services, b)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		if cfg.Idempotency != nil {
			r.Use(middleware.Idempotency(cfg.Idempotency, cfg.IdempotencyTTL, cfg.Logger))
		}

		r.Route("/stock", func(r chi.Router) {
			r.Get("/", stock.ListStock)
			r.Post("/add", stock.AddStock)
			r.Post("/remove", stock.RemoveStock)
			r.Get("/movements", stock.ListMovements)
			r.Get("/valuation", stock.Valuation)
			r.Get("/{productId}/{warehouseId}", stock.GetQuantity)
		})
		r.Post("/transfers", stock.Transfer)
		r.Route("/adjustments", func(r chi.Router) {
			r.Post("/", stock.ProposeAdjustment)
			r.Get("/", stock.ListAdjustments)
			r.Get("/{id}", stock.GetAdjustment)
			r.Post("/{id}/approve", stock.ApproveAdjustment)
			r.Post("/{id}/reject", stock.RejectAdjustment)
			r.Post("/{id}/apply", stock.ApplyAdjustment)
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Post("/", orders.CreatePurchaseOrder)
			r.Get("/", orders.ListPurchaseOrders)
			r.Get("/{id}", orders.GetPurchaseOrder)
			r.Patch("/{id}", orders.UpdatePurchaseOrder)
			r.Delete("/{id}", orders.DeletePurchaseOrder)
			r.Post("/{id}/items", orders.AddPurchaseOrderItem)
			r.Delete("/{id}/items/{itemId}", orders.RemovePurchaseOrderItem)
			r.Post("/{id}/submit", orders.SubmitPurchaseOrder)
			r.Post("/{id}/approve", orders.ApprovePurchaseOrder)
			r.Post("/{id}/reject", orders.RejectPurchaseOrder)
			r.Post("/{id}/cancel", orders.CancelPurchaseOrder)
			r.Post("/{id}/receive", orders.ReceivePurchaseOrder)
		})
		r.Route("/sales-orders", func(r chi.Router) {
			r.Post("/", orders.CreateSalesOrder)
			r.Get("/", orders.ListSalesOrders)
			r.Get("/{id}", orders.GetSalesOrder)
			r.Patch("/{id}", orders.UpdateSalesOrder)
			r.Post("/{id}/items", orders.AddSalesOrderItem)
			r.Delete("/{id}/items/{itemId}", orders.RemoveSalesOrderItem)
			r.Post("/{id}/confirm", orders.ConfirmSalesOrder)
			r.Post("/{id}/fulfill", orders.FulfillSalesOrder)
			r.Post("/{id}/ship", orders.ShipSalesOrder)
			r.Post("/{id}/deliver", orders.DeliverSalesOrder)
			r.Post("/{id}/cancel", orders.CancelSalesOrder)
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Post("/", billing.CreateShipment)
			r.Get("/", billing.ListShipments)
			r.Get("/pending", billing.ListPendingShipments)
			r.Get("/overdue", billing.ListOverdueShipments)
			r.Get("/tracking/{trackingNumber}", billing.GetShipmentByTracking)
			r.Get("/{id}", billing.GetShipment)
			r.Post("/{id}/in-transit", billing.MarkShipmentInTransit)
			r.Post("/{id}/deliver", billing.DeliverShipment)
			r.Post("/{id}/fail", billing.FailShipment)
			r.Post("/{id}/return", billing.ReturnShipment)
			r.Put("/{id}/tracking", billing.UpdateShipmentTracking)
			r.Put("/{id}/status", billing.UpdateShipmentStatus)
		})
		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", billing.GenerateInvoice)
			r.Get("/", billing.ListInvoices)
			r.Get("/sales-order/{id}", billing.GetInvoiceBySalesOrder)
			r.Get("/{id}", billing.GetInvoice)
			r.Post("/{id}/send", billing.SendInvoice)
			r.Put("/{id}/status", billing.UpdateInvoiceStatus)
			r.Post("/{id}/payments", billing.RecordInvoicePayment)
		})
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", billing.RecordPayment)
			r.Get("/", billing.ListPayments)
			r.Get("/{id}", billing.GetPayment)
			r.Post("/{id}/complete", billing.CompletePayment)
			r.Post("/{id}/fail", billing.FailPayment)
			r.Post("/{id}/refund", billing.RefundPayment)
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", catalog.CreateProduct)
			r.Get("/", catalog.ListProducts)
			r.Get("/sku/{sku}", catalog.GetProductBySKU)
			r.Get("/{id}", catalog.GetProduct)
			r.Put("/{id}", catalog.UpdateProduct)
		})
		r.Route("/warehouses", func(r chi.Router) {
			r.Post("/", catalog.CreateWarehouse)
			r.Get("/", catalog.ListWarehouses)
			r.Get("/{id}", catalog.GetWarehouse)
		})
		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", catalog.CreateSupplier)
			r.Get("/", catalog.ListSuppliers)
			r.Get("/active-count", catalog.CountActiveSuppliers)
			r.Get("/code/{code}", catalog.GetSupplierByCode)
			r.Get("/{id}", catalog.GetSupplier)
			r.Put("/{id}", catalog.UpdateSupplier)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", catalog.CreateCategory)
			r.Get("/", catalog.ListCategories)
			r.Get("/tree", catalog.CategoryTree)
			r.Get("/{id}", catalog.GetCategory)
			r.Put("/{id}", catalog.UpdateCategory)
			r.Delete("/{id}", catalog.DeleteCategory)
			r.Get("/{id}/path", catalog.CategoryPath)
			r.Get("/{id}/products", catalog.CategoryProducts)
		})
	})

	return r
}
