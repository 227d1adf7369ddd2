package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/InventoryGo/internal/domain"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

func (f *fixture) completedPayment(t *testing.T, amount int64) *domain.Payment {
	t.Helper()
	ctx := context.Background()
	p, err := f.payments.Record(ctx, RecordPaymentInput{
		CustomerID: uuid.New(),
		Amount:     decimal.NewFromInt(amount),
		Method:     domain.PaymentMethodBankTransfer,
		Reference:  "WIRE-881",
	})
	require.NoError(t, err)
	p, err = f.payments.Complete(ctx, p.ID)
	require.NoError(t, err)
	return p
}

func TestPayment_Record(t *testing.T) {
	f := newFixture(t)
	p, err := f.payments.Record(context.Background(), RecordPaymentInput{
		CustomerID: uuid.New(),
		Amount:     decimal.RequireFromString("49.90"),
		Currency:   " eur ",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, p.Status)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, domain.PaymentMethodOther, p.Method)
	assert.Regexp(t, `^PAY-\d{8}-0001$`, p.Number)
	assert.Nil(t, p.InvoiceID)
	assert.True(t, p.RefundedAmount.IsZero())

	p, err = f.payments.Record(context.Background(), RecordPaymentInput{CustomerID: uuid.New(), Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCurrency, p.Currency)
}

func TestPayment_RecordValidation(t *testing.T) {
	f := newFixture(t)
	customer := uuid.New()

	tests := []struct {
		name string
		in   RecordPaymentInput
		want error
	}{
		{"zero amount", RecordPaymentInput{CustomerID: customer}, apperrors.ErrInvalidAmount},
		{"negative amount", RecordPaymentInput{CustomerID: customer, Amount: decimal.NewFromInt(-5)}, apperrors.ErrInvalidAmount},
		{"missing customer", RecordPaymentInput{Amount: decimal.NewFromInt(5)}, apperrors.ErrInvalidInput},
		{"unknown method", RecordPaymentInput{CustomerID: customer, Amount: decimal.NewFromInt(5), Method: "IOU"}, apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.payments.Record(context.Background(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPayment_CompleteAndFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.completedPayment(t, 80)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
	_, err := f.payments.Fail(ctx, p.ID, "bounced")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	pending, err := f.payments.Record(ctx, RecordPaymentInput{CustomerID: uuid.New(), Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	failed, err := f.payments.Fail(ctx, pending.ID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, failed.Status)
	assert.Contains(t, failed.Notes, "FAILED: card declined")

	_, err = f.payments.Complete(ctx, failed.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestPayment_Refund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.completedPayment(t, 50)

	_, err := f.payments.Refund(ctx, p.ID, decimal.NewFromInt(51), "too much")
	assert.ErrorIs(t, err, apperrors.ErrRefundAmountExceedsPayment)
	_, err = f.payments.Refund(ctx, p.ID, decimal.Zero, "nothing")
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	p, err = f.payments.Refund(ctx, p.ID, decimal.NewFromInt(30), "damaged goods")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, p.Status)
	assert.True(t, decimal.NewFromInt(30).Equal(p.RefundedAmount))
	assert.Contains(t, p.Notes, "REFUND: damaged goods")

	_, err = f.payments.Refund(ctx, p.ID, decimal.NewFromInt(10), "again")
	assert.ErrorIs(t, err, apperrors.ErrPaymentAlreadyRefunded)
}

func TestPayment_RefundRequiresCompleted(t *testing.T) {
	f := newFixture(t)
	p, err := f.payments.Record(context.Background(), RecordPaymentInput{CustomerID: uuid.New(), Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	_, err = f.payments.Refund(context.Background(), p.ID, decimal.NewFromInt(5), "early")
	assert.ErrorIs(t, err, apperrors.ErrPaymentNotRefundable)
}

func TestPayment_RefundRestoresInvoiceBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t)

	inv, p, err := f.billing.RecordPayment(ctx, inv.ID, pay(60))
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePartial, inv.Status)

	_, err = f.payments.Refund(ctx, p.ID, decimal.NewFromInt(60), "order returned")
	require.NoError(t, err)

	got, err := f.billing.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
	assert.True(t, decimal.NewFromInt(100).Equal(got.BalanceDue), got.BalanceDue.String())
	assert.Equal(t, domain.InvoiceSent, got.Status)
}

func TestPayment_RefundLeavesPaidInvoiceUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t)

	_, p, err := f.billing.RecordPayment(ctx, inv.ID, pay(100))
	require.NoError(t, err)

	p, err = f.payments.Refund(ctx, p.ID, decimal.NewFromInt(100), "order returned")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, p.Status)
	assert.True(t, decimal.NewFromInt(100).Equal(p.RefundedAmount))

	got, err := f.billing.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, got.Status)
	assert.True(t, decimal.NewFromInt(100).Equal(got.PaidAmount), got.PaidAmount.String())
	assert.True(t, got.BalanceDue.IsZero(), got.BalanceDue.String())
}

func TestPayment_RefundRestoredWhenInvoiceCannotBeUpdated(t *testing.T) {
	f := newFixture(t, func(d *deps) {
		d.invoices = &failingInvoices{InvoiceRepository: d.invoices}
	})
	ctx := context.Background()
	inv := f.invoice(t)

	_, p, err := f.billing.RecordPayment(ctx, inv.ID, RecordInvoicePaymentInput{
		Amount: decimal.NewFromInt(40),
		Method: domain.PaymentMethodCash,
		Notes:  "counter",
	})
	require.NoError(t, err)

	_, err = f.payments.Refund(ctx, p.ID, decimal.NewFromInt(40), "return")
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)

	got, err := f.payments.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, got.Status)
	assert.True(t, got.RefundedAmount.IsZero())
	assert.Equal(t, "counter", got.Notes)

	invoice, err := f.billing.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(invoice.PaidAmount))
}

func TestPayment_ListByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.completedPayment(t, 5)
	f.completedPayment(t, 6)
	_, err := f.payments.Record(ctx, RecordPaymentInput{CustomerID: uuid.New(), Amount: decimal.NewFromInt(7)})
	require.NoError(t, err)

	completed, err := f.payments.List(ctx, domain.PaymentFilter{Status: domain.PaymentCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	all, err := f.payments.List(ctx, domain.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
