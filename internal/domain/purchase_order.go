package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus is the lifecycle state of a supplier order.
type PurchaseOrderStatus string

// Purchase order statuses.
const (
	PurchaseOrderDraft     PurchaseOrderStatus = "DRAFT"
	PurchaseOrderSubmitted PurchaseOrderStatus = "SUBMITTED"
	PurchaseOrderApproved  PurchaseOrderStatus = "APPROVED"
	PurchaseOrderReceived  PurchaseOrderStatus = "RECEIVED"
	PurchaseOrderCancelled PurchaseOrderStatus = "CANCELLED"
)

// PurchaseOrderTransitions defines which status transitions are valid.
// SUBMITTED -> DRAFT is a rejection.
func PurchaseOrderTransitions() map[PurchaseOrderStatus][]PurchaseOrderStatus {
	return map[PurchaseOrderStatus][]PurchaseOrderStatus{
		PurchaseOrderDraft:     {PurchaseOrderSubmitted, PurchaseOrderCancelled},
		PurchaseOrderSubmitted: {PurchaseOrderApproved, PurchaseOrderDraft, PurchaseOrderCancelled},
		PurchaseOrderApproved:  {PurchaseOrderReceived, PurchaseOrderCancelled},
		PurchaseOrderReceived:  {},
		PurchaseOrderCancelled: {},
	}
}

// PurchaseOrder is an order placed with a supplier for delivery into one
// warehouse.
type PurchaseOrder struct {
	ID                   uuid.UUID           `json:"id"`
	Number               string              `json:"number"`
	SupplierID           uuid.UUID           `json:"supplier_id"`
	WarehouseID          uuid.UUID           `json:"warehouse_id"`
	Status               PurchaseOrderStatus `json:"status"`
	Items                []PurchaseOrderItem `json:"items"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	TaxAmount            decimal.Decimal     `json:"tax_amount"`
	DiscountAmount       decimal.Decimal     `json:"discount_amount"`
	TotalAmount          decimal.Decimal     `json:"total_amount"`
	OrderDate            time.Time           `json:"order_date"`
	ExpectedDeliveryDate *time.Time          `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time          `json:"actual_delivery_date,omitempty"`
	Notes                string              `json:"notes,omitempty"`
	CreatedBy            *uuid.UUID          `json:"created_by,omitempty"`
	ApprovedBy           *uuid.UUID          `json:"approved_by,omitempty"`
	Version              int64               `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// PurchaseOrderItem is one product line of a purchase order.
type PurchaseOrderItem struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	QuantityOrdered  int             `json:"quantity_ordered"`
	QuantityReceived int             `json:"quantity_received"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// LineTotal returns QuantityOrdered x UnitPrice.
func (i *PurchaseOrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.QuantityOrdered)))
}

// Outstanding returns the quantity still to be received.
func (i *PurchaseOrderItem) Outstanding() int {
	return i.QuantityOrdered - i.QuantityReceived
}

// CanTransitionTo checks whether the order can move to target.
func (o *PurchaseOrder) CanTransitionTo(target PurchaseOrderStatus) bool {
	return canTransition(PurchaseOrderTransitions(), o.Status, target)
}

// IsEditable reports whether items and header fields may still change.
func (o *PurchaseOrder) IsEditable() bool {
	return o.Status == PurchaseOrderDraft || o.Status == PurchaseOrderSubmitted
}

// IsFullyReceived reports whether every item has been received in full.
func (o *PurchaseOrder) IsFullyReceived() bool {
	for i := range o.Items {
		if o.Items[i].QuantityReceived < o.Items[i].QuantityOrdered {
			return false
		}
	}
	return len(o.Items) > 0
}

// Item returns the item with the given id.
func (o *PurchaseOrder) Item(id uuid.UUID) (*PurchaseOrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// RecalculateTotals recomputes Subtotal and TotalAmount from the items.
func (o *PurchaseOrder) RecalculateTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		subtotal = subtotal.Add(o.Items[i].LineTotal())
	}
	o.Subtotal = subtotal
	o.TotalAmount = subtotal.Add(o.TaxAmount).Sub(o.DiscountAmount)
}

// AppendNote adds a line to Notes.
func (o *PurchaseOrder) AppendNote(note string) {
	o.Notes = appendNote(o.Notes, note)
}

// PurchaseOrderFilter narrows purchase order listings.
type PurchaseOrderFilter struct {
	Status      PurchaseOrderStatus
	SupplierID  *uuid.UUID
	WarehouseID *uuid.UUID
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
