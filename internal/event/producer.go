package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/InventoryGo/internal/domain"
	pkgkafka "github.com/utafrali/InventoryGo/pkg/kafka"
)

// Kafka topic constants for inventory domain events.
const (
	TopicStockChanged            = "inventory.stock.changed"
	TopicStockLow                = "inventory.stock.low"
	TopicPurchaseOrderReceived   = "inventory.purchase_order.received"
	TopicSalesOrderStatusChanged = "inventory.sales_order.status_changed"
	TopicInvoicePaid             = "inventory.invoice.paid"
	TopicPaymentRefunded         = "inventory.payment.refunded"
)

// Aggregate type constants.
const (
	AggregateTypeStock         = "stock"
	AggregateTypePurchaseOrder = "purchase_order"
	AggregateTypeSalesOrder    = "sales_order"
	AggregateTypeInvoice       = "invoice"
	AggregateTypePayment       = "payment"
)

// SourceInventoryService identifies events originating from this service.
const SourceInventoryService = "inventory-service"

// StockChangedData is the payload for an inventory.stock.changed event.
type StockChangedData struct {
	ProductID    string `json:"product_id"`
	WarehouseID  string `json:"warehouse_id"`
	Quantity     int    `json:"quantity"`
	Version      int64  `json:"version"`
	MovementID   string `json:"movement_id,omitempty"`
	MovementType string `json:"movement_type,omitempty"`
	Delta        int    `json:"delta"`
	Reference    string `json:"reference,omitempty"`
}

// StockLowData is the payload for an inventory.stock.low event.
type StockLowData struct {
	ProductID     string `json:"product_id"`
	SKU           string `json:"sku"`
	WarehouseID   string `json:"warehouse_id"`
	Quantity      int    `json:"quantity"`
	ReorderLevel  int    `json:"reorder_level"`
	MinStockLevel int    `json:"min_stock_level"`
	Status        string `json:"status"`
}

// PurchaseOrderReceivedData is the payload for an
// inventory.purchase_order.received event.
type PurchaseOrderReceivedData struct {
	PurchaseOrderID string `json:"purchase_order_id"`
	Number          string `json:"number"`
	WarehouseID     string `json:"warehouse_id"`
	Status          string `json:"status"`
	UnitsReceived   int    `json:"units_received"`
}

// SalesOrderStatusChangedData is the payload for an
// inventory.sales_order.status_changed event.
type SalesOrderStatusChangedData struct {
	SalesOrderID string `json:"sales_order_id"`
	Number       string `json:"number"`
	CustomerID   string `json:"customer_id"`
	From         string `json:"from"`
	To           string `json:"to"`
}

// InvoicePaidData is the payload for an inventory.invoice.paid event.
type InvoicePaidData struct {
	InvoiceID  string          `json:"invoice_id"`
	Number     string          `json:"number"`
	PaymentID  string          `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	BalanceDue decimal.Decimal `json:"balance_due"`
	Status     string          `json:"status"`
}

// PaymentRefundedData is the payload for an inventory.payment.refunded event.
type PaymentRefundedData struct {
	PaymentID      string          `json:"payment_id"`
	Number         string          `json:"number"`
	InvoiceID      string          `json:"invoice_id,omitempty"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
}

// Producer publishes inventory domain events to Kafka. A nil *Producer
// discards every event, which is how the service runs without a broker.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the inventory service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceInventoryService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, event.Stamp(ctx)); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishStockChanged publishes an inventory.stock.changed event. delta is
// the signed quantity change applied to rec.
func (p *Producer) PublishStockChanged(ctx context.Context, rec *domain.StockRecord, mv *domain.Movement, delta int) error {
	data := StockChangedData{
		ProductID:   rec.ProductID.String(),
		WarehouseID: rec.WarehouseID.String(),
		Quantity:    rec.Quantity,
		Version:     rec.Version,
		Delta:       delta,
	}
	if mv != nil {
		data.MovementID = mv.ID.String()
		data.MovementType = string(mv.Type)
		data.Reference = mv.Reference
	}
	return p.publish(ctx, TopicStockChanged, rec.ProductID.String(), AggregateTypeStock, data)
}

// PublishStockLow publishes an inventory.stock.low event.
func (p *Producer) PublishStockLow(ctx context.Context, product *domain.Product, rec *domain.StockRecord) error {
	data := StockLowData{
		ProductID:     product.ID.String(),
		SKU:           product.SKU,
		WarehouseID:   rec.WarehouseID.String(),
		Quantity:      rec.Quantity,
		ReorderLevel:  product.ReorderLevel,
		MinStockLevel: product.MinStockLevel,
		Status:        product.StockStatus(rec.Quantity),
	}
	return p.publish(ctx, TopicStockLow, product.ID.String(), AggregateTypeStock, data)
}

// PublishPurchaseOrderReceived publishes an inventory.purchase_order.received
// event after a receipt of unitsReceived units.
func (p *Producer) PublishPurchaseOrderReceived(ctx context.Context, o *domain.PurchaseOrder, unitsReceived int) error {
	data := PurchaseOrderReceivedData{
		PurchaseOrderID: o.ID.String(),
		Number:          o.Number,
		WarehouseID:     o.WarehouseID.String(),
		Status:          string(o.Status),
		UnitsReceived:   unitsReceived,
	}
	return p.publish(ctx, TopicPurchaseOrderReceived, o.ID.String(), AggregateTypePurchaseOrder, data)
}

// PublishSalesOrderStatusChanged publishes an
// inventory.sales_order.status_changed event.
func (p *Producer) PublishSalesOrderStatusChanged(ctx context.Context, o *domain.SalesOrder, from domain.SalesOrderStatus) error {
	data := SalesOrderStatusChangedData{
		SalesOrderID: o.ID.String(),
		Number:       o.Number,
		CustomerID:   o.CustomerID.String(),
		From:         string(from),
		To:           string(o.Status),
	}
	return p.publish(ctx, TopicSalesOrderStatusChanged, o.ID.String(), AggregateTypeSalesOrder, data)
}

// PublishInvoicePaid publishes an inventory.invoice.paid event for a recorded
// invoice payment.
func (p *Producer) PublishInvoicePaid(ctx context.Context, inv *domain.Invoice, payment *domain.Payment) error {
	data := InvoicePaidData{
		InvoiceID:  inv.ID.String(),
		Number:     inv.Number,
		PaymentID:  payment.ID.String(),
		Amount:     payment.Amount,
		PaidAmount: inv.PaidAmount,
		BalanceDue: inv.BalanceDue,
		Status:     string(inv.Status),
	}
	return p.publish(ctx, TopicInvoicePaid, inv.ID.String(), AggregateTypeInvoice, data)
}

// PublishPaymentRefunded publishes an inventory.payment.refunded event.
func (p *Producer) PublishPaymentRefunded(ctx context.Context, payment *domain.Payment) error {
	data := PaymentRefundedData{
		PaymentID:      payment.ID.String(),
		Number:         payment.Number,
		RefundedAmount: payment.RefundedAmount,
	}
	if payment.InvoiceID != nil {
		data.InvoiceID = payment.InvoiceID.String()
	}
	return p.publish(ctx, TopicPaymentRefunded, payment.ID.String(), AggregateTypePayment, data)
}
