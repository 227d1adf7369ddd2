package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a payment does not name one.
const DefaultCurrency = "USD"

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

// Payment statuses.
const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// PaymentTransitions defines which status transitions are valid.
func PaymentTransitions() map[PaymentStatus][]PaymentStatus {
	return map[PaymentStatus][]PaymentStatus{
		PaymentPending:   {PaymentCompleted, PaymentFailed},
		PaymentCompleted: {PaymentRefunded},
		PaymentFailed:    {},
		PaymentRefunded:  {},
	}
}

// PaymentMethod is how a payment was made.
type PaymentMethod string

// Payment methods.
const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid reports whether m is a known payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// Payment is money received from a customer, optionally against an invoice.
// RefundedAmount never exceeds Amount.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	Number         string          `json:"number"`
	InvoiceID      *uuid.UUID      `json:"invoice_id,omitempty"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Method         PaymentMethod   `json:"method"`
	Status         PaymentStatus   `json:"status"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	PaymentDate    time.Time       `json:"payment_date"`
	Reference      string          `json:"reference,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CanTransitionTo checks whether the payment can move to target.
func (p *Payment) CanTransitionTo(target PaymentStatus) bool {
	return canTransition(PaymentTransitions(), p.Status, target)
}

// AppendNote adds a line to Notes.
func (p *Payment) AppendNote(note string) {
	p.Notes = appendNote(p.Notes, note)
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	Status     PaymentStatus
	InvoiceID  *uuid.UUID
	CustomerID *uuid.UUID
}
