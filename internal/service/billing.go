package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/event"
	"github.com/utafrali/InventoryGo/internal/repository"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// DefaultPaymentTerms is the due date offset used when none is given.
const DefaultPaymentTerms = 30 * 24 * time.Hour

// RecordInvoicePaymentInput pays Amount against an invoice.
type RecordInvoicePaymentInput struct {
	Amount      decimal.Decimal
	PaymentDate *time.Time
	Method      domain.PaymentMethod
	Reference   string
	Notes       string
}

// BillingService issues invoices for sales orders and keeps their balances
// consistent with the payments recorded against them.
type BillingService struct {
	invoices    repository.InvoiceRepository
	salesOrders repository.SalesOrderRepository
	numbers     *NumberGenerator
	producer    *event.Producer
	logger      *slog.Logger
	now         Clock
}

// NewBillingService creates a billing service.
func NewBillingService(
	invoices repository.InvoiceRepository,
	salesOrders repository.SalesOrderRepository,
	numbers *NumberGenerator,
	producer *event.Producer,
	logger *slog.Logger,
) *BillingService {
	return &BillingService{
		invoices:    invoices,
		salesOrders: salesOrders,
		numbers:     numbers,
		producer:    producer,
		logger:      logger,
		now:         utcNow,
	}
}

// GenerateInvoice issues the single DRAFT invoice of a confirmed sales order.
// A zero invoiceDate means today; a zero dueDate means DefaultPaymentTerms
// after the invoice date.
func (s *BillingService) GenerateInvoice(ctx context.Context, salesOrderID uuid.UUID, invoiceDate, dueDate time.Time) (*domain.Invoice, error) {
	if invoiceDate.IsZero() {
		invoiceDate = s.now()
	}
	if dueDate.IsZero() {
		dueDate = invoiceDate.Add(DefaultPaymentTerms)
	}
	if dueDate.Before(invoiceDate) {
		return nil, apperrors.InvalidInput("due_date must not be before invoice_date")
	}

	so, err := s.salesOrders.GetByID(ctx, salesOrderID)
	if err != nil {
		return nil, fmt.Errorf("generate invoice: %w", err)
	}
	if !so.IsInvoiceable() {
		return nil, apperrors.InvalidTransition(resourceSalesOrder, string(so.Status), "INVOICED")
	}
	if _, err := s.invoices.GetBySalesOrderID(ctx, so.ID); err == nil {
		return nil, apperrors.InvoiceAlreadyExists(so.ID.String())
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("generate invoice: %w", err)
	}

	number, err := s.numbers.Next(ctx, PrefixInvoice)
	if err != nil {
		return nil, fmt.Errorf("generate invoice: %w", err)
	}

	inv := domain.NewInvoiceFromOrder(so, invoiceDate.UTC(), dueDate.UTC())
	inv.ID = uuid.New()
	inv.Number = number
	inv.CreatedAt = s.now()
	inv.UpdatedAt = inv.CreatedAt
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("generate invoice: %w", err)
	}

	s.logger.InfoContext(ctx, "invoice generated",
		slog.String("invoice_id", inv.ID.String()),
		slog.String("number", inv.Number),
		slog.String("sales_order_id", so.ID.String()),
		slog.String("total_amount", inv.TotalAmount.String()),
	)
	return inv, nil
}

// openInvoice loads an invoice that is neither cancelled nor paid.
func (s *BillingService) openInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case domain.InvoiceCancelled:
		return nil, apperrors.InvoiceAlreadyCancelled(inv.ID.String())
	case domain.InvoicePaid:
		return nil, apperrors.InvoiceAlreadyPaid(inv.ID.String())
	}
	return inv, nil
}

// Send marks a DRAFT or OVERDUE invoice SENT.
func (s *BillingService) Send(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	return s.UpdateStatus(ctx, id, domain.InvoiceSent)
}

// UpdateStatus moves an open invoice to status. PARTIAL and PAID follow from
// recorded payments and cannot be set here.
func (s *BillingService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.InvoiceStatus) (*domain.Invoice, error) {
	if !status.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown invoice status %q", status))
	}
	inv, err := s.openInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update invoice status: %w", err)
	}
	if status.IsPaymentDriven() || !inv.CanTransitionTo(status) {
		return nil, apperrors.InvalidTransition("invoice", string(inv.Status), string(status))
	}

	inv.Status = status
	inv.UpdatedAt = s.now()
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("update invoice status: %w", err)
	}

	s.logger.InfoContext(ctx, "invoice status updated",
		slog.String("invoice_id", inv.ID.String()),
		slog.String("status", string(inv.Status)),
	)
	return inv, nil
}

// RecordPayment applies a COMPLETED payment to an open invoice. The invoice
// update and the payment insert commit together; if the invoice changed since
// it was read, neither is stored.
func (s *BillingService) RecordPayment(ctx context.Context, id uuid.UUID, in RecordInvoicePaymentInput) (*domain.Invoice, *domain.Payment, error) {
	inv, err := s.openInvoice(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("record invoice payment: %w", err)
	}
	if in.Amount.Sign() <= 0 {
		return nil, nil, apperrors.InvalidAmount("amount", in.Amount)
	}
	if in.Amount.GreaterThan(inv.BalanceDue) {
		return nil, nil, apperrors.InvoicePaymentExceedsBalance(in.Amount.String(), inv.BalanceDue.String())
	}
	method := in.Method
	if method == "" {
		method = domain.PaymentMethodOther
	}
	if !method.IsValid() {
		return nil, nil, apperrors.InvalidInput(fmt.Sprintf("unknown payment method %q", in.Method))
	}

	number, err := s.numbers.Next(ctx, PrefixPayment)
	if err != nil {
		return nil, nil, fmt.Errorf("record invoice payment: %w", err)
	}

	now := s.now()
	paidAt := now
	if in.PaymentDate != nil {
		paidAt = in.PaymentDate.UTC()
	}
	invoiceID := inv.ID
	p := &domain.Payment{
		ID:             uuid.New(),
		Number:         number,
		InvoiceID:      &invoiceID,
		CustomerID:     inv.CustomerID,
		Amount:         in.Amount,
		Currency:       domain.DefaultCurrency,
		Method:         method,
		Status:         domain.PaymentCompleted,
		RefundedAmount: decimal.Zero,
		PaymentDate:    paidAt,
		Reference:      in.Reference,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	inv.ApplyPayment(in.Amount)
	inv.UpdatedAt = now
	if err := s.invoices.UpdateWithPayment(ctx, inv, p); err != nil {
		return nil, nil, fmt.Errorf("record invoice payment: %w", err)
	}

	if err := s.producer.PublishInvoicePaid(ctx, inv, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish invoice paid event",
			slog.String("invoice_id", inv.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "invoice payment recorded",
		slog.String("invoice_id", inv.ID.String()),
		slog.String("payment_id", p.ID.String()),
		slog.String("amount", p.Amount.String()),
		slog.String("balance_due", inv.BalanceDue.String()),
		slog.String("status", string(inv.Status)),
	)
	return inv, p, nil
}

// ApplyRefund reduces the amount paid on an open invoice after one of its
// payments was refunded. A PAID invoice is closed and is rejected with
// InvoiceAlreadyPaid.
func (s *BillingService) ApplyRefund(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal) (*domain.Invoice, error) {
	if amount.Sign() <= 0 {
		return nil, apperrors.InvalidAmount("amount", amount)
	}
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("apply invoice refund: %w", err)
	}
	switch inv.Status {
	case domain.InvoiceCancelled:
		return nil, apperrors.InvoiceAlreadyCancelled(inv.ID.String())
	case domain.InvoicePaid:
		return nil, apperrors.InvoiceAlreadyPaid(inv.ID.String())
	}

	if !inv.ApplyRefund(amount) {
		return inv, nil
	}
	inv.UpdatedAt = s.now()
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("apply invoice refund: %w", err)
	}

	s.logger.InfoContext(ctx, "invoice refund applied",
		slog.String("invoice_id", inv.ID.String()),
		slog.String("amount", amount.String()),
		slog.String("balance_due", inv.BalanceDue.String()),
	)
	return inv, nil
}

// MarkOverdue moves every SENT or PARTIAL invoice due before asOf to OVERDUE
// and returns how many were moved. An invoice that changes while the sweep
// runs is skipped until the next sweep.
func (s *BillingService) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.invoices.ListOverdue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("mark overdue invoices: %w", err)
	}

	marked := 0
	for i := range due {
		inv := &due[i]
		inv.Status = domain.InvoiceOverdue
		inv.UpdatedAt = s.now()
		if err := s.invoices.Update(ctx, inv); err != nil {
			if apperrors.IsRetryable(err) {
				s.logger.WarnContext(ctx, "invoice changed during overdue sweep",
					slog.String("invoice_id", inv.ID.String()),
				)
				continue
			}
			return marked, fmt.Errorf("mark invoice %s overdue: %w", inv.ID, err)
		}
		marked++
	}

	if marked > 0 {
		s.logger.InfoContext(ctx, "invoices marked overdue", slog.Int("count", marked))
	}
	return marked, nil
}

// Get returns one invoice.
func (s *BillingService) Get(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetBySalesOrder returns the invoice issued for a sales order.
func (s *BillingService) GetBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.invoices.GetBySalesOrderID(ctx, salesOrderID)
	if err != nil {
		return nil, fmt.Errorf("get invoice by sales order: %w", err)
	}
	return inv, nil
}

// List returns invoices matching filter, newest first.
func (s *BillingService) List(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	out, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}
