package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/pkg/database"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// InvoiceRepository implements repository.InvoiceRepository using PostgreSQL.
type InvoiceRepository struct {
	pool database.DBTX
}

// NewInvoiceRepository creates a new PostgreSQL-backed invoice repository.
func NewInvoiceRepository(pool database.DBTX) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

const (
	invoiceColumns = `id, number, sales_order_id, customer_id, invoice_date, due_date, subtotal, tax_amount, discount_amount,
	total_amount, paid_amount, balance_due, status, notes, version, created_at, updated_at`

	updateInvoiceSQL = `
		UPDATE invoices
		SET due_date = $3, subtotal = $4, tax_amount = $5, discount_amount = $6, total_amount = $7, paid_amount = $8,
			balance_due = $9, status = $10, notes = $11, updated_at = $12, version = version + 1
		WHERE id = $1 AND version = $2`

	// invoiceSalesOrderConstraint is the unique index on invoices.sales_order_id.
	invoiceSalesOrderConstraint = "invoices_sales_order_id_key"
)

func scanInvoice(row pgx.Row, inv *domain.Invoice) error {
	return row.Scan(
		&inv.ID,
		&inv.Number,
		&inv.SalesOrderID,
		&inv.CustomerID,
		&inv.InvoiceDate,
		&inv.DueDate,
		&inv.Subtotal,
		&inv.TaxAmount,
		&inv.DiscountAmount,
		&inv.TotalAmount,
		&inv.PaidAmount,
		&inv.BalanceDue,
		&inv.Status,
		&inv.Notes,
		&inv.Version,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
}

// Create inserts a new invoice at version 1. A sales order has at most one
// invoice.
func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	inv.Version = 1
	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.pool.Exec(ctx, query,
		inv.ID,
		inv.Number,
		inv.SalesOrderID,
		inv.CustomerID,
		inv.InvoiceDate,
		inv.DueDate,
		inv.Subtotal,
		inv.TaxAmount,
		inv.DiscountAmount,
		inv.TotalAmount,
		inv.PaidAmount,
		inv.BalanceDue,
		inv.Status,
		inv.Notes,
		inv.Version,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			if constraintName(err) == invoiceSalesOrderConstraint {
				return apperrors.InvoiceAlreadyExists(inv.SalesOrderID.String())
			}
			return apperrors.AlreadyExists("invoice", "number", inv.Number)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice by its ID.
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	var inv domain.Invoice
	if err := scanInvoice(r.pool.QueryRow(ctx, query, id), &inv); err != nil {
		return nil, noRows(err, "get invoice", "invoice", id.String())
	}
	return &inv, nil
}

// GetBySalesOrderID retrieves the invoice issued for a sales order.
func (r *InvoiceRepository) GetBySalesOrderID(ctx context.Context, salesOrderID uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE sales_order_id = $1`

	var inv domain.Invoice
	if err := scanInvoice(r.pool.QueryRow(ctx, query, salesOrderID), &inv); err != nil {
		return nil, noRows(err, "get invoice by sales order", "invoice for sales order", salesOrderID.String())
	}
	return &inv, nil
}

// Update writes the invoice if its stored version equals inv.Version.
func (r *InvoiceRepository) Update(ctx context.Context, inv *domain.Invoice) error {
	if err := updateInvoice(ctx, r.pool, inv); err != nil {
		return err
	}
	inv.Version++
	return nil
}

// UpdateWithPayment writes the invoice and inserts p in one transaction.
func (r *InvoiceRepository) UpdateWithPayment(ctx context.Context, inv *domain.Invoice, p *domain.Payment) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateInvoiceWithPayment", updateInvoiceSQL)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := updateInvoice(ctx, tx, inv); err != nil {
			return err
		}
		p.Version = 1
		return insertPayment(ctx, tx, p)
	})
	if err != nil {
		return err
	}
	inv.Version++
	return nil
}

func updateInvoice(ctx context.Context, q querier, inv *domain.Invoice) error {
	tag, err := q.Exec(ctx, updateInvoiceSQL,
		inv.ID,
		inv.Version,
		inv.DueDate,
		inv.Subtotal,
		inv.TaxAmount,
		inv.DiscountAmount,
		inv.TotalAmount,
		inv.PaidAmount,
		inv.BalanceDue,
		inv.Status,
		inv.Notes,
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return casResult(tag, "invoice", inv.ID.String())
}

// List returns invoices, newest first.
func (r *InvoiceRepository) List(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	var w where
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if filter.CustomerID != nil {
		w.add("customer_id = $%d", *filter.CustomerID)
	}
	if filter.DueBefore != nil {
		w.add("due_date < $%d", *filter.DueBefore)
	}
	return r.query(ctx, w)
}

// ListOverdue returns SENT and PARTIAL invoices with a balance that were due
// before asOf.
func (r *InvoiceRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Invoice, error) {
	w := where{conds: []string{"balance_due > 0"}}
	w.add("status = ANY($%d)", []string{string(domain.InvoiceSent), string(domain.InvoicePartial)})
	w.add("due_date < $%d", asOf)
	return r.query(ctx, w)
}

func (r *InvoiceRepository) query(ctx context.Context, w where) ([]domain.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY created_at DESC`, invoiceColumns, w.clause())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0)
	for rows.Next() {
		var inv domain.Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return invoices, nil
}

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	pool database.DBTX
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool database.DBTX) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, number, invoice_id, customer_id, amount, currency, method, status, refunded_amount, payment_date,
	reference, notes, version, created_at, updated_at`

func scanPayment(row pgx.Row, p *domain.Payment) error {
	return row.Scan(
		&p.ID,
		&p.Number,
		&p.InvoiceID,
		&p.CustomerID,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&p.Status,
		&p.RefundedAmount,
		&p.PaymentDate,
		&p.Reference,
		&p.Notes,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func insertPayment(ctx context.Context, q querier, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := q.Exec(ctx, query,
		p.ID,
		p.Number,
		p.InvoiceID,
		p.CustomerID,
		p.Amount,
		p.Currency,
		p.Method,
		p.Status,
		p.RefundedAmount,
		p.PaymentDate,
		p.Reference,
		p.Notes,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("payment", "number", p.Number)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// Create inserts a payment that is not tied to an invoice update.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	p.Version = 1
	return insertPayment(ctx, r.pool, p)
}

// GetByID retrieves a payment by its ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var p domain.Payment
	if err := scanPayment(r.pool.QueryRow(ctx, query, id), &p); err != nil {
		return nil, noRows(err, "get payment", "payment", id.String())
	}
	return &p, nil
}

// Update writes the payment if its stored version equals p.Version.
func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $3, refunded_amount = $4, reference = $5, notes = $6, updated_at = $7, version = version + 1
		WHERE id = $1 AND version = $2`

	tag, err := r.pool.Exec(ctx, query, p.ID, p.Version, p.Status, p.RefundedAmount, p.Reference, p.Notes, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if err := casResult(tag, "payment", p.ID.String()); err != nil {
		return err
	}
	p.Version++
	return nil
}

// List returns payments, newest first.
func (r *PaymentRepository) List(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	var w where
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if filter.InvoiceID != nil {
		w.add("invoice_id = $%d", *filter.InvoiceID)
	}
	if filter.CustomerID != nil {
		w.add("customer_id = $%d", *filter.CustomerID)
	}

	query := fmt.Sprintf(`SELECT %s FROM payments %s ORDER BY created_at DESC`, paymentColumns, w.clause())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		var p domain.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}
