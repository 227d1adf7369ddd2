package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

// Invoice statuses.
const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoicePartial   InvoiceStatus = "PARTIAL"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// InvoiceTransitions defines which status transitions are valid. PARTIAL and
// PAID are reached only by recording payments; a refund moves PARTIAL back to
// SENT. PAID and CANCELLED are closed.
func InvoiceTransitions() map[InvoiceStatus][]InvoiceStatus {
	return map[InvoiceStatus][]InvoiceStatus{
		InvoiceDraft:     {InvoiceSent, InvoicePartial, InvoicePaid, InvoiceCancelled},
		InvoiceSent:      {InvoicePartial, InvoicePaid, InvoiceOverdue, InvoiceCancelled},
		InvoicePartial:   {InvoicePartial, InvoicePaid, InvoiceOverdue, InvoiceSent, InvoiceCancelled},
		InvoiceOverdue:   {InvoiceSent, InvoicePartial, InvoicePaid, InvoiceCancelled},
		InvoicePaid:      {},
		InvoiceCancelled: {},
	}
}

// IsPaymentDriven reports whether s is derived from the paid balance rather
// than set directly.
func (s InvoiceStatus) IsPaymentDriven() bool {
	return s == InvoicePartial || s == InvoicePaid
}

// IsValid reports whether s is a known invoice status.
func (s InvoiceStatus) IsValid() bool {
	_, ok := InvoiceTransitions()[s]
	return ok
}

// Invoice bills one sales order. BalanceDue always equals TotalAmount minus
// PaidAmount and PaidAmount never exceeds TotalAmount.
type Invoice struct {
	ID             uuid.UUID       `json:"id"`
	Number         string          `json:"number"`
	SalesOrderID   uuid.UUID       `json:"sales_order_id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	InvoiceDate    time.Time       `json:"invoice_date"`
	DueDate        time.Time       `json:"due_date"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
	Status         InvoiceStatus   `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewInvoiceFromOrder snapshots the order's amounts. Shipping is billed as
// part of the subtotal and no discount applies.
func NewInvoiceFromOrder(o *SalesOrder, invoiceDate, dueDate time.Time) *Invoice {
	inv := &Invoice{
		SalesOrderID:   o.ID,
		CustomerID:     o.CustomerID,
		InvoiceDate:    invoiceDate,
		DueDate:        dueDate,
		Subtotal:       o.Subtotal.Add(o.ShippingCost),
		TaxAmount:      o.TaxAmount,
		DiscountAmount: decimal.Zero,
		PaidAmount:     decimal.Zero,
		Status:         InvoiceDraft,
	}
	inv.TotalAmount = inv.Subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount)
	inv.BalanceDue = inv.TotalAmount
	return inv
}

// CanTransitionTo checks whether the invoice can move to target.
func (i *Invoice) CanTransitionTo(target InvoiceStatus) bool {
	return canTransition(InvoiceTransitions(), i.Status, target)
}

// ApplyPayment adds amount to PaidAmount and settles the status. The caller
// must have checked amount against BalanceDue.
func (i *Invoice) ApplyPayment(amount decimal.Decimal) {
	i.PaidAmount = i.PaidAmount.Add(amount)
	i.settle()
}

// ApplyRefund takes amount back off PaidAmount, never below zero. PAID and
// CANCELLED invoices are closed and stay as they are; the result reports
// whether the invoice changed.
func (i *Invoice) ApplyRefund(amount decimal.Decimal) bool {
	if i.Status == InvoicePaid || i.Status == InvoiceCancelled {
		return false
	}
	i.PaidAmount = decimal.Max(i.PaidAmount.Sub(amount), decimal.Zero)
	i.settle()
	return true
}

func (i *Invoice) settle() {
	i.BalanceDue = i.TotalAmount.Sub(i.PaidAmount)
	switch {
	case i.BalanceDue.Sign() <= 0:
		i.Status = InvoicePaid
	case i.PaidAmount.Sign() > 0:
		i.Status = InvoicePartial
	case i.Status == InvoicePartial:
		i.Status = InvoiceSent
	}
}

// IsOverdue reports whether an open invoice is past its due date.
func (i *Invoice) IsOverdue(asOf time.Time) bool {
	if i.Status != InvoiceSent && i.Status != InvoicePartial {
		return false
	}
	return i.DueDate.Before(asOf) && i.BalanceDue.Sign() > 0
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	Status     InvoiceStatus
	CustomerID *uuid.UUID
	DueBefore  *time.Time
}
