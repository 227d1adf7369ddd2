package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/InventoryGo/internal/domain"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// invoice issues a DRAFT invoice of 100 for a confirmed order of ten units.
func (f *fixture) invoice(t *testing.T) *domain.Invoice {
	t.Helper()
	f.stock(t, f.product, f.warehouseA, 10)
	so := f.confirmedSalesOrder(t, 10, 0)
	inv, err := f.billing.GenerateInvoice(context.Background(), so.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	return inv
}

func pay(amount int64) RecordInvoicePaymentInput {
	return RecordInvoicePaymentInput{Amount: decimal.NewFromInt(amount), Method: domain.PaymentMethodCard}
}

func TestBilling_GenerateInvoice(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t)

	assert.Equal(t, domain.InvoiceDraft, inv.Status)
	assert.Regexp(t, `^INV-\d{8}-0001$`, inv.Number)
	assert.True(t, decimal.NewFromInt(100).Equal(inv.TotalAmount), inv.TotalAmount.String())
	assert.True(t, decimal.NewFromInt(100).Equal(inv.BalanceDue))
	assert.True(t, inv.PaidAmount.IsZero())
	assert.Equal(t, inv.InvoiceDate.Add(DefaultPaymentTerms), inv.DueDate)
}

func TestBilling_GenerateInvoiceIncludesShippingAndTax(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 10)

	o := f.salesOrder(t, 2, 0)
	tax, shipping := decimal.NewFromInt(3), decimal.NewFromInt(7)
	_, err := f.sales.Update(ctx, o.ID, UpdateSalesOrderInput{TaxAmount: &tax, ShippingCost: &shipping})
	require.NoError(t, err)
	_, err = f.sales.Confirm(ctx, o.ID)
	require.NoError(t, err)

	inv, err := f.billing.GenerateInvoice(ctx, o.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(27).Equal(inv.Subtotal), inv.Subtotal.String())
	assert.True(t, decimal.NewFromInt(30).Equal(inv.TotalAmount), inv.TotalAmount.String())
}

func TestBilling_GenerateInvoiceRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 10)

	pending := f.salesOrder(t, 1, 0)
	_, err := f.billing.GenerateInvoice(ctx, pending.ID, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	confirmed := f.confirmedSalesOrder(t, 1, 0)
	day := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	_, err = f.billing.GenerateInvoice(ctx, confirmed.ID, day, day.Add(-time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.billing.GenerateInvoice(ctx, confirmed.ID, day, day.Add(14*24*time.Hour))
	require.NoError(t, err)
	_, err = f.billing.GenerateInvoice(ctx, confirmed.ID, day, time.Time{})
	assert.ErrorIs(t, err, apperrors.ErrInvoiceAlreadyExists)
}

func TestBilling_PartialThenFullPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t)

	inv, p, err := f.billing.RecordPayment(ctx, inv.ID, pay(60))
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePartial, inv.Status)
	assert.True(t, decimal.NewFromInt(40).Equal(inv.BalanceDue), inv.BalanceDue.String())
	assert.Equal(t, domain.PaymentCompleted, p.Status)
	require.NotNil(t, p.InvoiceID)
	assert.Equal(t, inv.ID, *p.InvoiceID)
	assert.Equal(t, inv.CustomerID, p.CustomerID)

	_, _, err = f.billing.RecordPayment(ctx, inv.ID, pay(50))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvoicePaymentExceedsBalance)

	got, err := f.billing.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(got.PaidAmount))

	inv, _, err = f.billing.RecordPayment(ctx, inv.ID, pay(40))
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, inv.Status)
	assert.True(t, inv.BalanceDue.IsZero())

	_, _, err = f.billing.RecordPayment(ctx, inv.ID, pay(1))
	assert.ErrorIs(t, err, apperrors.ErrInvoiceAlreadyPaid)

	payments, err := f.payments.List(ctx, domain.PaymentFilter{InvoiceID: &inv.ID})
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestBilling_RecordPaymentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t)

	_, _, err := f.billing.RecordPayment(ctx, inv.ID, pay(0))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, _, err = f.billing.RecordPayment(ctx, inv.ID, RecordInvoicePaymentInput{Amount: decimal.NewFromInt(5), Method: "BARTER"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, p, err := f.billing.RecordPayment(ctx, inv.ID, RecordInvoicePaymentInput{Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodOther, p.Method)
}

func TestBilling_CancelledInvoiceTakesNoPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t)

	inv, err := f.billing.Send(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceSent, inv.Status)

	inv, err = f.billing.UpdateStatus(ctx, inv.ID, domain.InvoiceCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceCancelled, inv.Status)

	_, _, err = f.billing.RecordPayment(ctx, inv.ID, pay(10))
	assert.ErrorIs(t, err, apperrors.ErrInvoiceAlreadyCancelled)
	_, err = f.billing.Send(ctx, inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvoiceAlreadyCancelled)
}

func TestBilling_UpdateStatusRejectsUnknownAndInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t)

	_, err := f.billing.UpdateStatus(ctx, inv.ID, "VOID")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.billing.UpdateStatus(ctx, inv.ID, domain.InvoiceOverdue)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestBilling_UpdateStatusCannotSetPaymentStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t)

	for _, target := range []domain.InvoiceStatus{domain.InvoicePaid, domain.InvoicePartial} {
		_, err := f.billing.UpdateStatus(ctx, inv.ID, target)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, target)
	}

	_, err := f.billing.Send(ctx, inv.ID)
	require.NoError(t, err)
	_, err = f.billing.UpdateStatus(ctx, inv.ID, domain.InvoicePaid)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	got, err := f.billing.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceSent, got.Status)
	assert.True(t, got.PaidAmount.IsZero())

	got, _, err = f.billing.RecordPayment(ctx, inv.ID, pay(100))
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, got.Status)
	assert.True(t, got.BalanceDue.IsZero())
}

func TestBilling_ApplyRefundRejectsPaidInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t)

	_, _, err := f.billing.RecordPayment(ctx, inv.ID, pay(100))
	require.NoError(t, err)

	_, err = f.billing.ApplyRefund(ctx, inv.ID, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperrors.ErrInvoiceAlreadyPaid)

	got, err := f.billing.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, got.Status)
	assert.True(t, decimal.NewFromInt(100).Equal(got.PaidAmount))
}

func TestBilling_MarkOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 10)

	issued := time.Now().UTC().Add(-60 * 24 * time.Hour)
	late, err := f.billing.GenerateInvoice(ctx, f.confirmedSalesOrder(t, 1, 0).ID, issued, issued.Add(DefaultPaymentTerms))
	require.NoError(t, err)
	_, err = f.billing.Send(ctx, late.ID)
	require.NoError(t, err)

	draft, err := f.billing.GenerateInvoice(ctx, f.confirmedSalesOrder(t, 1, 0).ID, issued, issued.Add(DefaultPaymentTerms))
	require.NoError(t, err)

	current, err := f.billing.GenerateInvoice(ctx, f.confirmedSalesOrder(t, 1, 0).ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	_, err = f.billing.Send(ctx, current.ID)
	require.NoError(t, err)

	n, err := f.billing.MarkOverdue(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.billing.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceOverdue, got.Status)

	got, err = f.billing.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceDraft, got.Status)

	n, err = f.billing.MarkOverdue(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, n)

	got, _, err = f.billing.RecordPayment(ctx, late.ID, pay(4))
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePartial, got.Status)
}

func TestBilling_GetBySalesOrder(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t)

	got, err := f.billing.GetBySalesOrder(context.Background(), inv.SalesOrderID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
}
