package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/service"
	"github.com/utafrali/InventoryGo/pkg/httputil"
	"github.com/utafrali/InventoryGo/pkg/retry"
)

// OrderHandler handles purchase and sales orders.
type OrderHandler struct {
	base
	purchases *service.PurchaseOrderService
	sales     *service.SalesOrderService
}

// NewOrderHandler creates an order HTTP handler.
func NewOrderHandler(svc Services, b base) *OrderHandler {
	return &OrderHandler{
		base:      b,
		purchases: svc.PurchaseOrders,
		sales:     svc.SalesOrders,
	}
}

// --- Request DTOs ---

// PurchaseOrderItemRequest is one line of a purchase order.
type PurchaseOrderItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

func (req PurchaseOrderItemRequest) input() service.PurchaseOrderItemInput {
	return service.PurchaseOrderItemInput{ProductID: req.ProductID, Quantity: req.Quantity, UnitPrice: req.UnitPrice}
}

// CreatePurchaseOrderRequest opens a DRAFT purchase order.
type CreatePurchaseOrderRequest struct {
	SupplierID           uuid.UUID                  `json:"supplier_id" validate:"required"`
	WarehouseID          uuid.UUID                  `json:"warehouse_id" validate:"required"`
	Items                []PurchaseOrderItemRequest `json:"items" validate:"dive"`
	TaxAmount            decimal.Decimal            `json:"tax_amount" validate:"gte=0"`
	DiscountAmount       decimal.Decimal            `json:"discount_amount" validate:"gte=0"`
	OrderDate            *time.Time                 `json:"order_date"`
	ExpectedDeliveryDate *time.Time                 `json:"expected_delivery_date"`
	Notes                string                     `json:"notes" validate:"max=2000"`
	CreatedBy            *uuid.UUID                 `json:"created_by"`
}

// UpdatePurchaseOrderRequest changes header fields of an editable order.
type UpdatePurchaseOrderRequest struct {
	ExpectedDeliveryDate *time.Time       `json:"expected_delivery_date"`
	TaxAmount            *decimal.Decimal `json:"tax_amount"`
	DiscountAmount       *decimal.Decimal `json:"discount_amount"`
	Notes                *string          `json:"notes"`
}

// ApprovePurchaseOrderRequest names the approver.
type ApprovePurchaseOrderRequest struct {
	ApproverID *uuid.UUID `json:"approver_id"`
}

// ReceiveLineRequest receives units against one order item.
type ReceiveLineRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"gt=0"`
}

// ReceivePurchaseOrderRequest records a delivery.
type ReceivePurchaseOrderRequest struct {
	ActualDeliveryDate *time.Time           `json:"actual_delivery_date"`
	Lines              []ReceiveLineRequest `json:"lines" validate:"required,min=1,dive"`
	PerformedBy        *uuid.UUID           `json:"performed_by"`
}

// SalesOrderItemRequest is one line of a sales order. A missing unit price
// is taken from the catalog.
type SalesOrderItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

func (req SalesOrderItemRequest) input() service.SalesOrderItemInput {
	return service.SalesOrderItemInput{ProductID: req.ProductID, Quantity: req.Quantity, UnitPrice: req.UnitPrice}
}

// CreateSalesOrderRequest opens a PENDING sales order.
type CreateSalesOrderRequest struct {
	CustomerID      uuid.UUID               `json:"customer_id" validate:"required"`
	WarehouseID     uuid.UUID               `json:"warehouse_id" validate:"required"`
	Items           []SalesOrderItemRequest `json:"items" validate:"dive"`
	TaxAmount       decimal.Decimal         `json:"tax_amount" validate:"gte=0"`
	ShippingCost    decimal.Decimal         `json:"shipping_cost" validate:"gte=0"`
	RequiredDate    *time.Time              `json:"required_date"`
	ShippingAddress string                  `json:"shipping_address" validate:"max=1000"`
	Notes           string                  `json:"notes" validate:"max=2000"`
	CreatedBy       *uuid.UUID              `json:"created_by"`
}

// UpdateSalesOrderRequest changes header fields of a PENDING order.
type UpdateSalesOrderRequest struct {
	TaxAmount       *decimal.Decimal `json:"tax_amount"`
	ShippingCost    *decimal.Decimal `json:"shipping_cost"`
	RequiredDate    *time.Time       `json:"required_date"`
	ShippingAddress *string          `json:"shipping_address"`
	Notes           *string          `json:"notes"`
}

// --- Purchase orders ---

// CreatePurchaseOrder handles POST /api/v1/purchase-orders
func (h *OrderHandler) CreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseOrderRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	items := make([]service.PurchaseOrderItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = it.input()
	}
	o, err := h.purchases.Create(r.Context(), service.CreatePurchaseOrderInput{
		SupplierID:           req.SupplierID,
		WarehouseID:          req.WarehouseID,
		Items:                items,
		TaxAmount:            req.TaxAmount,
		DiscountAmount:       req.DiscountAmount,
		OrderDate:            req.OrderDate,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		Notes:                req.Notes,
		CreatedBy:            actor(r, req.CreatedBy),
	})
	h.reply(w, r, http.StatusCreated, o, err)
}

// ListPurchaseOrders handles GET /api/v1/purchase-orders
func (h *OrderHandler) ListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := queryID(w, r, "supplier_id")
	if !ok {
		return
	}
	warehouseID, ok := queryID(w, r, "warehouse_id")
	if !ok {
		return
	}
	out, err := h.purchases.List(r.Context(), domain.PurchaseOrderFilter{
		Status:      domain.PurchaseOrderStatus(r.URL.Query().Get("status")),
		SupplierID:  supplierID,
		WarehouseID: warehouseID,
	})
	h.reply(w, r, http.StatusOK, out, err)
}

// GetPurchaseOrder handles GET /api/v1/purchase-orders/{id}
func (h *OrderHandler) GetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.purchases.Get(r.Context(), id)
	h.reply(w, r, http.StatusOK, o, err)
}

// UpdatePurchaseOrder handles PATCH /api/v1/purchase-orders/{id}
func (h *OrderHandler) UpdatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdatePurchaseOrderRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	in := service.UpdatePurchaseOrderInput{
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		TaxAmount:            req.TaxAmount,
		DiscountAmount:       req.DiscountAmount,
		Notes:                req.Notes,
	}
	o, err := retry.OnConflict(r.Context(), h.policy, "update purchase order", func(ctx context.Context) (*domain.PurchaseOrder, error) {
		return h.purchases.Update(ctx, id, in)
	})
	h.reply(w, r, http.StatusOK, o, err)
}

// DeletePurchaseOrder handles DELETE /api/v1/purchase-orders/{id}
func (h *OrderHandler) DeletePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.purchases.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddPurchaseOrderItem handles POST /api/v1/purchase-orders/{id}/items
func (h *OrderHandler) AddPurchaseOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req PurchaseOrderItemRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	o, err := retry.OnConflict(r.Context(), h.policy, "add purchase order item", func(ctx context.Context) (*domain.PurchaseOrder, error) {
		return h.purchases.AddItem(ctx, id, req.input())
	})
	h.reply(w, r, http.StatusCreated, o, err)
}

// RemovePurchaseOrderItem handles DELETE /api/v1/purchase-orders/{id}/items/{itemId}
func (h *OrderHandler) RemovePurchaseOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}
	o, err := retry.OnConflict(r.Context(), h.policy, "remove purchase order item", func(ctx context.Context) (*domain.PurchaseOrder, error) {
		return h.purchases.RemoveItem(ctx, id, itemID)
	})
	h.reply(w, r, http.StatusOK, o, err)
}

// SubmitPurchaseOrder handles POST /api/v1/purchase-orders/{id}/submit
func (h *OrderHandler) SubmitPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseTransition(w, r, "submit purchase order", func(ctx context.Context, id uuid.UUID, _ string) (*domain.PurchaseOrder, error) {
		return h.purchases.Submit(ctx, id)
	})
}

// ApprovePurchaseOrder handles POST /api/v1/purchase-orders/{id}/approve
func (h *OrderHandler) ApprovePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ApprovePurchaseOrderRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	approver := actor(r, req.ApproverID)
	if approver == nil {
		badParam(w, "approver_id or X-Actor-ID is required")
		return
	}
	o, err := retry.OnConflict(r.Context(), h.policy, "approve purchase order", func(ctx context.Context) (*domain.PurchaseOrder, error) {
		return h.purchases.Approve(ctx, id, *approver)
	})
	h.reply(w, r, http.StatusOK, o, err)
}

// RejectPurchaseOrder handles POST /api/v1/purchase-orders/{id}/reject
func (h *OrderHandler) RejectPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseTransition(w, r, "reject purchase order", h.purchases.Reject)
}

// CancelPurchaseOrder handles POST /api/v1/purchase-orders/{id}/cancel
func (h *OrderHandler) CancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseTransition(w, r, "cancel purchase order", h.purchases.Cancel)
}

func (h *OrderHandler) purchaseTransition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, uuid.UUID, string) (*domain.PurchaseOrder, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	o, err := retry.OnConflict(r.Context(), h.policy, op, func(ctx context.Context) (*domain.PurchaseOrder, error) {
		return fn(ctx, id, req.Reason)
	})
	h.reply(w, r, http.StatusOK, o, err)
}

// ReceivePurchaseOrder handles POST /api/v1/purchase-orders/{id}/receive
func (h *OrderHandler) ReceivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ReceivePurchaseOrderRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	in := service.ReceiveInput{
		ActualDeliveryDate: req.ActualDeliveryDate,
		Lines:              make([]service.ReceiveLine, len(req.Lines)),
		PerformedBy:        actor(r, req.PerformedBy),
	}
	for i, l := range req.Lines {
		in.Lines[i] = service.ReceiveLine{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	o, err := retry.OnConflict(r.Context(), h.policy, "receive purchase order", func(ctx context.Context) (*domain.PurchaseOrder, error) {
		return h.purchases.Receive(ctx, id, in)
	})
	h.reply(w, r, http.StatusOK, o, err)
}

// --- Sales orders ---

// CreateSalesOrder handles POST /api/v1/sales-orders
func (h *OrderHandler) CreateSalesOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateSalesOrderRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	items := make([]service.SalesOrderItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = it.input()
	}
	o, err := h.sales.Create(r.Context(), service.CreateSalesOrderInput{
		CustomerID:      req.CustomerID,
		WarehouseID:     req.WarehouseID,
		Items:           items,
		TaxAmount:       req.TaxAmount,
		ShippingCost:    req.ShippingCost,
		RequiredDate:    req.RequiredDate,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		CreatedBy:       actor(r, req.CreatedBy),
	})
	h.reply(w, r, http.StatusCreated, o, err)
}

// ListSalesOrders handles GET /api/v1/sales-orders
func (h *OrderHandler) ListSalesOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := queryID(w, r, "customer_id")
	if !ok {
		return
	}
	warehouseID, ok := queryID(w, r, "warehouse_id")
	if !ok {
		return
	}
	out, err := h.sales.List(r.Context(), domain.SalesOrderFilter{
		Status:      domain.SalesOrderStatus(r.URL.Query().Get("status")),
		CustomerID:  customerID,
		WarehouseID: warehouseID,
	})
	h.reply(w, r, http.StatusOK, out, err)
}

// GetSalesOrder handles GET /api/v1/sales-orders/{id}
func (h *OrderHandler) GetSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.sales.Get(r.Context(), id)
	h.reply(w, r, http.StatusOK, o, err)
}

// UpdateSalesOrder handles PATCH /api/v1/sales-orders/{id}
func (h *OrderHandler) UpdateSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateSalesOrderRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	in := service.UpdateSalesOrderInput{
		TaxAmount:       req.TaxAmount,
		ShippingCost:    req.ShippingCost,
		RequiredDate:    req.RequiredDate,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}
	o, err := retry.OnConflict(r.Context(), h.policy, "update sales order", func(ctx context.Context) (*domain.SalesOrder, error) {
		return h.sales.Update(ctx, id, in)
	})
	h.reply(w, r, http.StatusOK, o, err)
}

// AddSalesOrderItem handles POST /api/v1/sales-orders/{id}/items
func (h *OrderHandler) AddSalesOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req SalesOrderItemRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	o, err := retry.OnConflict(r.Context(), h.policy, "add sales order item", func(ctx context.Context) (*domain.SalesOrder, error) {
		return h.sales.AddItem(ctx, id, req.input())
	})
	h.reply(w, r, http.StatusCreated, o, err)
}

// RemoveSalesOrderItem handles DELETE /api/v1/sales-orders/{id}/items/{itemId}
func (h *OrderHandler) RemoveSalesOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}
	o, err := retry.OnConflict(r.Context(), h.policy, "remove sales order item", func(ctx context.Context) (*domain.SalesOrder, error) {
		return h.sales.RemoveItem(ctx, id, itemID)
	})
	h.reply(w, r, http.StatusOK, o, err)
}

// ConfirmSalesOrder handles POST /api/v1/sales-orders/{id}/confirm
func (h *OrderHandler) ConfirmSalesOrder(w http.ResponseWriter, r *http.Request) {
	h.salesTransition(w, r, "confirm sales order", h.sales.Confirm)
}

// FulfillSalesOrder handles POST /api/v1/sales-orders/{id}/fulfill
func (h *OrderHandler) FulfillSalesOrder(w http.ResponseWriter, r *http.Request) {
	h.salesTransition(w, r, "fulfill sales order", h.sales.Fulfill)
}

// ShipSalesOrder handles POST /api/v1/sales-orders/{id}/ship
func (h *OrderHandler) ShipSalesOrder(w http.ResponseWriter, r *http.Request) {
	h.salesTransition(w, r, "ship sales order", h.sales.Ship)
}

// DeliverSalesOrder handles POST /api/v1/sales-orders/{id}/deliver
func (h *OrderHandler) DeliverSalesOrder(w http.ResponseWriter, r *http.Request) {
	h.salesTransition(w, r, "deliver sales order", h.sales.Deliver)
}

// CancelSalesOrder handles POST /api/v1/sales-orders/{id}/cancel
func (h *OrderHandler) CancelSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	o, err := retry.OnConflict(r.Context(), h.policy, "cancel sales order", func(ctx context.Context) (*domain.SalesOrder, error) {
		return h.sales.Cancel(ctx, id, req.Reason)
	})
	h.reply(w, r, http.StatusOK, o, err)
}

func (h *OrderHandler) salesTransition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, uuid.UUID) (*domain.SalesOrder, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := retry.OnConflict(r.Context(), h.policy, op, func(ctx context.Context) (*domain.SalesOrder, error) {
		return fn(ctx, id)
	})
	h.reply(w, r, http.StatusOK, o, err)
}
