package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/event"
	"github.com/utafrali/InventoryGo/internal/repository"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
	"github.com/utafrali/InventoryGo/pkg/retry"
)

// RecordPaymentInput records a PENDING payment not tied to an invoice.
// Invoice payments go through BillingService.RecordPayment.
type RecordPaymentInput struct {
	CustomerID  uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Method      domain.PaymentMethod
	PaymentDate *time.Time
	Reference   string
	Notes       string
}

// PaymentService runs the payment state machine. Refunds of payments on open
// invoices are carried back to the invoice balance.
type PaymentService struct {
	payments repository.PaymentRepository
	billing  *BillingService
	numbers  *NumberGenerator
	producer *event.Producer
	policy   retry.Policy
	logger   *slog.Logger
	now      Clock
}

// NewPaymentService creates a payment service.
func NewPaymentService(
	payments repository.PaymentRepository,
	billing *BillingService,
	numbers *NumberGenerator,
	producer *event.Producer,
	policy retry.Policy,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		billing:  billing,
		numbers:  numbers,
		producer: producer,
		policy:   policy,
		logger:   logger,
		now:      utcNow,
	}
}

// Record stores a PENDING payment.
func (s *PaymentService) Record(ctx context.Context, in RecordPaymentInput) (*domain.Payment, error) {
	if in.Amount.Sign() <= 0 {
		return nil, apperrors.InvalidAmount("amount", in.Amount)
	}
	if in.CustomerID == uuid.Nil {
		return nil, apperrors.InvalidInput("customer_id is required")
	}
	method := in.Method
	if method == "" {
		method = domain.PaymentMethodOther
	}
	if !method.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown payment method %q", in.Method))
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	number, err := s.numbers.Next(ctx, PrefixPayment)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	now := s.now()
	paidAt := now
	if in.PaymentDate != nil {
		paidAt = in.PaymentDate.UTC()
	}
	p := &domain.Payment{
		ID:             uuid.New(),
		Number:         number,
		CustomerID:     in.CustomerID,
		Amount:         in.Amount,
		Currency:       currency,
		Method:         method,
		Status:         domain.PaymentPending,
		RefundedAmount: decimal.Zero,
		PaymentDate:    paidAt,
		Reference:      in.Reference,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	s.logger.InfoContext(ctx, "payment recorded",
		slog.String("payment_id", p.ID.String()),
		slog.String("number", p.Number),
		slog.String("amount", p.Amount.String()),
	)
	return p, nil
}

// Complete settles a PENDING payment.
func (s *PaymentService) Complete(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return s.settle(ctx, id, domain.PaymentCompleted, "complete payment")
}

// Fail marks a PENDING payment as failed.
func (s *PaymentService) Fail(ctx context.Context, id uuid.UUID, reason string) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fail payment: %w", err)
	}
	if !p.CanTransitionTo(domain.PaymentFailed) {
		return nil, apperrors.InvalidTransition("payment", string(p.Status), string(domain.PaymentFailed))
	}
	p.Status = domain.PaymentFailed
	if reason != "" {
		p.AppendNote("FAILED: " + reason)
	}
	return s.save(ctx, p, "fail payment")
}

func (s *PaymentService) settle(ctx context.Context, id uuid.UUID, target domain.PaymentStatus, op string) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !p.CanTransitionTo(target) {
		return nil, apperrors.InvalidTransition("payment", string(p.Status), string(target))
	}
	p.Status = target
	return s.save(ctx, p, op)
}

// Refund refunds amount of a COMPLETED payment. When the payment was made
// against an open invoice, the invoice balance is restored; if that fails the
// payment is put back to COMPLETED. A PAID invoice is closed, so the refund
// is recorded on the payment alone.
func (s *PaymentService) Refund(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reason string) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refund payment: %w", err)
	}
	switch {
	case p.Status == domain.PaymentRefunded:
		return nil, apperrors.PaymentAlreadyRefunded(p.ID.String())
	case p.Status != domain.PaymentCompleted:
		return nil, apperrors.PaymentNotRefundable(p.ID.String(), string(p.Status))
	case amount.Sign() <= 0:
		return nil, apperrors.InvalidAmount("amount", amount)
	case amount.GreaterThan(p.Amount):
		return nil, apperrors.RefundAmountExceedsPayment(amount.String(), p.Amount.String())
	}

	previousNotes := p.Notes
	p.Status = domain.PaymentRefunded
	p.RefundedAmount = amount
	p.AppendNote("REFUND: " + reason)
	if _, err := s.save(ctx, p, "refund payment"); err != nil {
		return nil, err
	}

	if p.InvoiceID != nil {
		invoiceID := *p.InvoiceID
		err := retry.Do(ctx, s.policy, "apply invoice refund", func(ctx context.Context) error {
			_, err := s.billing.ApplyRefund(ctx, invoiceID, amount)
			return err
		})
		switch {
		case errors.Is(err, apperrors.ErrInvoiceAlreadyPaid):
			s.logger.InfoContext(ctx, "invoice closed, refund kept on payment",
				slog.String("payment_id", p.ID.String()),
				slog.String("invoice_id", invoiceID.String()),
			)
		case err != nil:
			cause := fmt.Errorf("refund payment: %w", err)
			return nil, compensate(ctx, s.logger, "refund payment", cause, func(ctx context.Context) error {
				return s.restore(ctx, p.ID, previousNotes)
			})
		}
	}

	if err := s.producer.PublishPaymentRefunded(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment refunded event",
			slog.String("payment_id", p.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return p, nil
}

// restore undoes a refund whose invoice side could not be applied.
func (s *PaymentService) restore(ctx context.Context, id uuid.UUID, notes string) error {
	return retry.Do(ctx, s.policy, "restore refunded payment", func(ctx context.Context) error {
		p, err := s.payments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		p.Status = domain.PaymentCompleted
		p.RefundedAmount = decimal.Zero
		p.Notes = notes
		p.UpdatedAt = s.now()
		return s.payments.Update(ctx, p)
	})
}

// Get returns one payment.
func (s *PaymentService) Get(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// List returns payments matching filter, newest first.
func (s *PaymentService) List(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	out, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

func (s *PaymentService) save(ctx context.Context, p *domain.Payment, op string) (*domain.Payment, error) {
	p.UpdatedAt = s.now()
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.InfoContext(ctx, op,
		slog.String("payment_id", p.ID.String()),
		slog.String("status", string(p.Status)),
	)
	return p, nil
}
