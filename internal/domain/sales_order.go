package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrderStatus is the lifecycle state of a customer order.
type SalesOrderStatus string

// Sales order statuses.
const (
	SalesOrderPending   SalesOrderStatus = "PENDING"
	SalesOrderConfirmed SalesOrderStatus = "CONFIRMED"
	SalesOrderFulfilled SalesOrderStatus = "FULFILLED"
	SalesOrderShipped   SalesOrderStatus = "SHIPPED"
	SalesOrderDelivered SalesOrderStatus = "DELIVERED"
	SalesOrderCancelled SalesOrderStatus = "CANCELLED"
)

// SalesOrderTransitions defines which status transitions are valid.
func SalesOrderTransitions() map[SalesOrderStatus][]SalesOrderStatus {
	return map[SalesOrderStatus][]SalesOrderStatus{
		SalesOrderPending:   {SalesOrderConfirmed, SalesOrderCancelled},
		SalesOrderConfirmed: {SalesOrderFulfilled, SalesOrderCancelled},
		SalesOrderFulfilled: {SalesOrderShipped, SalesOrderCancelled},
		SalesOrderShipped:   {SalesOrderDelivered},
		SalesOrderDelivered: {},
		SalesOrderCancelled: {},
	}
}

// SalesOrder is a customer order shipped from one warehouse. CustomerName
// and CustomerEmail are captured when the order is created and are not kept
// in sync with the customer record afterwards.
type SalesOrder struct {
	ID              uuid.UUID        `json:"id"`
	Number          string           `json:"number"`
	CustomerID      uuid.UUID        `json:"customer_id"`
	CustomerName    string           `json:"customer_name"`
	CustomerEmail   string           `json:"customer_email"`
	WarehouseID     uuid.UUID        `json:"warehouse_id"`
	Status          SalesOrderStatus `json:"status"`
	Items           []SalesOrderItem `json:"items"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	TaxAmount       decimal.Decimal  `json:"tax_amount"`
	ShippingCost    decimal.Decimal  `json:"shipping_cost"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	OrderDate       time.Time        `json:"order_date"`
	RequiredDate    *time.Time       `json:"required_date,omitempty"`
	ShippingAddress string           `json:"shipping_address,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CreatedBy       *uuid.UUID       `json:"created_by,omitempty"`
	Version         int64            `json:"version"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// SalesOrderItem is one product line of a sales order.
type SalesOrderItem struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal returns Quantity x UnitPrice.
func (i *SalesOrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CanTransitionTo checks whether the order can move to target.
func (o *SalesOrder) CanTransitionTo(target SalesOrderStatus) bool {
	return canTransition(SalesOrderTransitions(), o.Status, target)
}

// IsEditable reports whether items and header fields may still change.
func (o *SalesOrder) IsEditable() bool {
	return o.Status == SalesOrderPending
}

// IsInvoiceable reports whether an invoice may be generated for the order.
func (o *SalesOrder) IsInvoiceable() bool {
	switch o.Status {
	case SalesOrderConfirmed, SalesOrderFulfilled, SalesOrderShipped, SalesOrderDelivered:
		return true
	}
	return false
}

// QuantitiesByProduct sums line quantities per product.
func (o *SalesOrder) QuantitiesByProduct() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(o.Items))
	for _, it := range o.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

// RecalculateTotals recomputes Subtotal and TotalAmount from the items.
func (o *SalesOrder) RecalculateTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		subtotal = subtotal.Add(o.Items[i].LineTotal())
	}
	o.Subtotal = subtotal
	o.TotalAmount = subtotal.Add(o.TaxAmount).Add(o.ShippingCost)
}

// AppendNote adds a line to Notes.
func (o *SalesOrder) AppendNote(note string) {
	o.Notes = appendNote(o.Notes, note)
}

// SalesOrderFilter narrows sales order listings.
type SalesOrderFilter struct {
	Status      SalesOrderStatus
	CustomerID  *uuid.UUID
	WarehouseID *uuid.UUID
}
