package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/service"
	"github.com/utafrali/InventoryGo/pkg/httputil"
	"github.com/utafrali/InventoryGo/pkg/retry"
)

// BillingHandler handles shipments, invoices and payments.
type BillingHandler struct {
	base
	shipments *service.ShipmentService
	billing   *service.BillingService
	payments  *service.PaymentService
}

// NewBillingHandler creates a billing HTTP handler.
func NewBillingHandler(svc Services, b base) *BillingHandler {
	return &BillingHandler{
		base:      b,
		shipments: svc.Shipments,
		billing:   svc.Billing,
		payments:  svc.Payments,
	}
}

// --- Request DTOs ---

// CreateShipmentRequest ships a fulfilled sales order.
type CreateShipmentRequest struct {
	SalesOrderID          uuid.UUID       `json:"sales_order_id" validate:"required"`
	Carrier               string          `json:"carrier" validate:"required,max=100"`
	TrackingNumber        string          `json:"tracking_number" validate:"max=100"`
	ShippingMethod        string          `json:"shipping_method" validate:"max=50"`
	ShippingCost          decimal.Decimal `json:"shipping_cost" validate:"gte=0"`
	EstimatedDeliveryDate *time.Time      `json:"estimated_delivery_date"`
	Notes                 string          `json:"notes" validate:"max=2000"`
}

// DeliverShipmentRequest records when a shipment arrived.
type DeliverShipmentRequest struct {
	DeliveredAt *time.Time `json:"delivered_at"`
}

// UpdateTrackingRequest replaces carrier and tracking number.
type UpdateTrackingRequest struct {
	Carrier        string `json:"carrier" validate:"required,max=100"`
	TrackingNumber string `json:"tracking_number" validate:"required,max=100"`
}

// UpdateShipmentStatusRequest moves a shipment to any permitted status.
type UpdateShipmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING IN_TRANSIT DELIVERED FAILED RETURNED"`
	Note   string `json:"note" validate:"max=500"`
}

// GenerateInvoiceRequest bills a confirmed sales order. Zero dates take the
// defaults.
type GenerateInvoiceRequest struct {
	SalesOrderID uuid.UUID `json:"sales_order_id" validate:"required"`
	InvoiceDate  time.Time `json:"invoice_date"`
	DueDate      time.Time `json:"due_date"`
}

// UpdateInvoiceStatusRequest moves an invoice to a permitted status.
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// InvoicePaymentRequest records a payment against an invoice.
type InvoicePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentDate *time.Time      `json:"payment_date"`
	Method      string          `json:"payment_method" validate:"max=20"`
	Reference   string          `json:"reference" validate:"max=100"`
	Notes       string          `json:"notes" validate:"max=2000"`
}

// InvoicePaymentResponse carries both sides of a recorded invoice payment.
type InvoicePaymentResponse struct {
	Invoice *domain.Invoice `json:"invoice"`
	Payment *domain.Payment `json:"payment"`
}

// RecordPaymentRequest records a payment that is not tied to an invoice.
type RecordPaymentRequest struct {
	CustomerID  uuid.UUID       `json:"customer_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency    string          `json:"currency" validate:"omitempty,len=3"`
	Method      string          `json:"payment_method" validate:"max=20"`
	PaymentDate *time.Time      `json:"payment_date"`
	Reference   string          `json:"reference" validate:"max=100"`
	Notes       string          `json:"notes" validate:"max=2000"`
}

// RefundRequest refunds part or all of a completed payment.
type RefundRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Reason string          `json:"reason" validate:"max=500"`
}

// --- Shipments ---

// CreateShipment handles POST /api/v1/shipments
func (h *BillingHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var req CreateShipmentRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	s, err := h.shipments.Create(r.Context(), service.CreateShipmentInput{
		SalesOrderID:          req.SalesOrderID,
		Carrier:               req.Carrier,
		TrackingNumber:        req.TrackingNumber,
		ShippingMethod:        req.ShippingMethod,
		ShippingCost:          req.ShippingCost,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
		Notes:                 req.Notes,
	})
	h.reply(w, r, http.StatusCreated, s, err)
}

// ListShipments handles GET /api/v1/shipments
func (h *BillingHandler) ListShipments(w http.ResponseWriter, r *http.Request) {
	salesOrderID, ok := queryID(w, r, "sales_order_id")
	if !ok {
		return
	}
	out, err := h.shipments.List(r.Context(), domain.ShipmentFilter{
		Status:       domain.ShipmentStatus(r.URL.Query().Get("status")),
		SalesOrderID: salesOrderID,
	})
	h.reply(w, r, http.StatusOK, out, err)
}

// ListPendingShipments handles GET /api/v1/shipments/pending
func (h *BillingHandler) ListPendingShipments(w http.ResponseWriter, r *http.Request) {
	out, err := h.shipments.ListPending(r.Context())
	h.reply(w, r, http.StatusOK, out, err)
}

// ListOverdueShipments handles GET /api/v1/shipments/overdue
func (h *BillingHandler) ListOverdueShipments(w http.ResponseWriter, r *http.Request) {
	asOf, ok := queryTime(w, r, "as_of")
	if !ok {
		return
	}
	out, err := h.shipments.ListOverdue(r.Context(), asOf)
	h.reply(w, r, http.StatusOK, out, err)
}

// GetShipmentByTracking handles GET /api/v1/shipments/tracking/{trackingNumber}
func (h *BillingHandler) GetShipmentByTracking(w http.ResponseWriter, r *http.Request) {
	s, err := h.shipments.GetByTrackingNumber(r.Context(), chi.URLParam(r, "trackingNumber"))
	h.reply(w, r, http.StatusOK, s, err)
}

// GetShipment handles GET /api/v1/shipments/{id}
func (h *BillingHandler) GetShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.shipments.Get(r.Context(), id)
	h.reply(w, r, http.StatusOK, s, err)
}

// MarkShipmentInTransit handles POST /api/v1/shipments/{id}/in-transit
func (h *BillingHandler) MarkShipmentInTransit(w http.ResponseWriter, r *http.Request) {
	h.shipmentTransition(w, r, "mark shipment in transit", func(ctx context.Context, id uuid.UUID, _ string) (*domain.Shipment, error) {
		return h.shipments.MarkInTransit(ctx, id)
	})
}

// FailShipment handles POST /api/v1/shipments/{id}/fail
func (h *BillingHandler) FailShipment(w http.ResponseWriter, r *http.Request) {
	h.shipmentTransition(w, r, "fail shipment", h.shipments.MarkFailed)
}

// ReturnShipment handles POST /api/v1/shipments/{id}/return
func (h *BillingHandler) ReturnShipment(w http.ResponseWriter, r *http.Request) {
	h.shipmentTransition(w, r, "return shipment", h.shipments.MarkReturned)
}

func (h *BillingHandler) shipmentTransition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, uuid.UUID, string) (*domain.Shipment, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	s, err := retry.OnConflict(r.Context(), h.policy, op, func(ctx context.Context) (*domain.Shipment, error) {
		return fn(ctx, id, req.Reason)
	})
	h.reply(w, r, http.StatusOK, s, err)
}

// DeliverShipment handles POST /api/v1/shipments/{id}/deliver
func (h *BillingHandler) DeliverShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req DeliverShipmentRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	s, err := retry.OnConflict(r.Context(), h.policy, "deliver shipment", func(ctx context.Context) (*domain.Shipment, error) {
		return h.shipments.Deliver(ctx, id, req.DeliveredAt)
	})
	h.reply(w, r, http.StatusOK, s, err)
}

// UpdateShipmentTracking handles PUT /api/v1/shipments/{id}/tracking
func (h *BillingHandler) UpdateShipmentTracking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateTrackingRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	s, err := retry.OnConflict(r.Context(), h.policy, "update shipment tracking", func(ctx context.Context) (*domain.Shipment, error) {
		return h.shipments.UpdateTracking(ctx, id, req.Carrier, req.TrackingNumber)
	})
	h.reply(w, r, http.StatusOK, s, err)
}

// UpdateShipmentStatus handles PUT /api/v1/shipments/{id}/status
func (h *BillingHandler) UpdateShipmentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateShipmentStatusRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	s, err := retry.OnConflict(r.Context(), h.policy, "update shipment status", func(ctx context.Context) (*domain.Shipment, error) {
		return h.shipments.UpdateStatus(ctx, id, domain.ShipmentStatus(req.Status), req.Note)
	})
	h.reply(w, r, http.StatusOK, s, err)
}

// --- Invoices ---

// GenerateInvoice handles POST /api/v1/invoices
func (h *BillingHandler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	var req GenerateInvoiceRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	inv, err := h.billing.GenerateInvoice(r.Context(), req.SalesOrderID, req.InvoiceDate, req.DueDate)
	h.reply(w, r, http.StatusCreated, inv, err)
}

// ListInvoices handles GET /api/v1/invoices
func (h *BillingHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	customerID, ok := queryID(w, r, "customer_id")
	if !ok {
		return
	}
	filter := domain.InvoiceFilter{
		Status:     domain.InvoiceStatus(r.URL.Query().Get("status")),
		CustomerID: customerID,
	}
	if r.URL.Query().Get("due_before") != "" {
		due, ok := queryTime(w, r, "due_before")
		if !ok {
			return
		}
		filter.DueBefore = &due
	}
	out, err := h.billing.List(r.Context(), filter)
	h.reply(w, r, http.StatusOK, out, err)
}

// GetInvoice handles GET /api/v1/invoices/{id}
func (h *BillingHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.billing.Get(r.Context(), id)
	h.reply(w, r, http.StatusOK, inv, err)
}

// GetInvoiceBySalesOrder handles GET /api/v1/invoices/sales-order/{id}
func (h *BillingHandler) GetInvoiceBySalesOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.billing.GetBySalesOrder(r.Context(), id)
	h.reply(w, r, http.StatusOK, inv, err)
}

// SendInvoice handles POST /api/v1/invoices/{id}/send
func (h *BillingHandler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := retry.OnConflict(r.Context(), h.policy, "send invoice", func(ctx context.Context) (*domain.Invoice, error) {
		return h.billing.Send(ctx, id)
	})
	h.reply(w, r, http.StatusOK, inv, err)
}

// UpdateInvoiceStatus handles PUT /api/v1/invoices/{id}/status
func (h *BillingHandler) UpdateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateInvoiceStatusRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	inv, err := retry.OnConflict(r.Context(), h.policy, "update invoice status", func(ctx context.Context) (*domain.Invoice, error) {
		return h.billing.UpdateStatus(ctx, id, domain.InvoiceStatus(req.Status))
	})
	h.reply(w, r, http.StatusOK, inv, err)
}

// RecordInvoicePayment handles POST /api/v1/invoices/{id}/payments
func (h *BillingHandler) RecordInvoicePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req InvoicePaymentRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	in := service.RecordInvoicePaymentInput{
		Amount:      req.Amount,
		PaymentDate: req.PaymentDate,
		Method:      domain.PaymentMethod(req.Method),
		Reference:   req.Reference,
		Notes:       req.Notes,
	}
	res, err := retry.OnConflict(r.Context(), h.policy, "record invoice payment", func(ctx context.Context) (*InvoicePaymentResponse, error) {
		inv, p, err := h.billing.RecordPayment(ctx, id, in)
		if err != nil {
			return nil, err
		}
		return &InvoicePaymentResponse{Invoice: inv, Payment: p}, nil
	})
	h.reply(w, r, http.StatusCreated, res, err)
}

// --- Payments ---

// RecordPayment handles POST /api/v1/payments
func (h *BillingHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	p, err := h.payments.Record(r.Context(), service.RecordPaymentInput{
		CustomerID:  req.CustomerID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Method:      domain.PaymentMethod(req.Method),
		PaymentDate: req.PaymentDate,
		Reference:   req.Reference,
		Notes:       req.Notes,
	})
	h.reply(w, r, http.StatusCreated, p, err)
}

// ListPayments handles GET /api/v1/payments
func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := queryID(w, r, "invoice_id")
	if !ok {
		return
	}
	customerID, ok := queryID(w, r, "customer_id")
	if !ok {
		return
	}
	out, err := h.payments.List(r.Context(), domain.PaymentFilter{
		Status:     domain.PaymentStatus(r.URL.Query().Get("status")),
		InvoiceID:  invoiceID,
		CustomerID: customerID,
	})
	h.reply(w, r, http.StatusOK, out, err)
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *BillingHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.payments.Get(r.Context(), id)
	h.reply(w, r, http.StatusOK, p, err)
}

// CompletePayment handles POST /api/v1/payments/{id}/complete
func (h *BillingHandler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := retry.OnConflict(r.Context(), h.policy, "complete payment", func(ctx context.Context) (*domain.Payment, error) {
		return h.payments.Complete(ctx, id)
	})
	h.reply(w, r, http.StatusOK, p, err)
}

// FailPayment handles POST /api/v1/payments/{id}/fail
func (h *BillingHandler) FailPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	p, err := retry.OnConflict(r.Context(), h.policy, "fail payment", func(ctx context.Context) (*domain.Payment, error) {
		return h.payments.Fail(ctx, id, req.Reason)
	})
	h.reply(w, r, http.StatusOK, p, err)
}

// RefundPayment handles POST /api/v1/payments/{id}/refund
func (h *BillingHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req RefundRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	p, err := retry.OnConflict(r.Context(), h.policy, "refund payment", func(ctx context.Context) (*domain.Payment, error) {
		return h.payments.Refund(ctx, id, req.Amount, req.Reason)
	})
	h.reply(w, r, http.StatusOK, p, err)
}
