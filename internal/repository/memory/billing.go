package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

// InvoiceRepository stores invoices.
type InvoiceRepository struct{ s *Store }

func (r *InvoiceRepository) Create(_ context.Context, inv *domain.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.invoices {
		if existing.SalesOrderID == inv.SalesOrderID {
			return apperrors.InvoiceAlreadyExists(inv.SalesOrderID.String())
		}
	}
	inv.Version = 1
	r.s.invoices[inv.ID] = *inv
	return nil
}

func (r *InvoiceRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, notFound("invoice", id)
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetBySalesOrderID(_ context.Context, salesOrderID uuid.UUID) (*domain.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, inv := range r.s.invoices {
		if inv.SalesOrderID == salesOrderID {
			return &inv, nil
		}
	}
	return nil, notFound("invoice for sales order", salesOrderID)
}

func (r *InvoiceRepository) Update(_ context.Context, inv *domain.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.updateLocked(inv)
}

func (r *InvoiceRepository) updateLocked(inv *domain.Invoice) error {
	stored, ok := r.s.invoices[inv.ID]
	if !ok {
		return notFound("invoice", inv.ID)
	}
	if err := casVersion("invoice", inv.ID, stored.Version, &inv.Version); err != nil {
		return err
	}
	r.s.invoices[inv.ID] = *inv
	return nil
}

func (r *InvoiceRepository) UpdateWithPayment(_ context.Context, inv *domain.Invoice, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.updateLocked(inv); err != nil {
		return err
	}
	p.Version = 1
	r.s.payments[p.ID] = *p
	return nil
}

func (r *InvoiceRepository) List(_ context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Invoice
	for _, inv := range r.s.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.DueBefore != nil && !inv.DueDate.Before(*filter.DueBefore) {
			continue
		}
		out = append(out, inv)
	}
	sortByCreated(out, func(inv domain.Invoice) time.Time { return inv.CreatedAt })
	return out, nil
}

func (r *InvoiceRepository) ListOverdue(_ context.Context, asOf time.Time) ([]domain.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Invoice
	for _, inv := range r.s.invoices {
		if inv.IsOverdue(asOf) {
			out = append(out, inv)
		}
	}
	sortByCreated(out, func(inv domain.Invoice) time.Time { return inv.CreatedAt })
	return out, nil
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

// PaymentRepository stores payments.
type PaymentRepository struct{ s *Store }

func (r *PaymentRepository) Create(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.Version = 1
	r.s.payments[p.ID] = *p
	return nil
}

func (r *PaymentRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, notFound("payment", id)
	}
	return &p, nil
}

func (r *PaymentRepository) Update(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.payments[p.ID]
	if !ok {
		return notFound("payment", p.ID)
	}
	if err := casVersion("payment", p.ID, stored.Version, &p.Version); err != nil {
		return err
	}
	r.s.payments[p.ID] = *p
	return nil
}

func (r *PaymentRepository) List(_ context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Payment
	for _, p := range r.s.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.InvoiceID != nil && (p.InvoiceID == nil || *p.InvoiceID != *filter.InvoiceID) {
			continue
		}
		if filter.CustomerID != nil && p.CustomerID != *filter.CustomerID {
			continue
		}
		out = append(out, p)
	}
	sortByCreated(out, func(p domain.Payment) time.Time { return p.CreatedAt })
	return out, nil
}
