package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/service"
	"github.com/utafrali/InventoryGo/pkg/httputil"
	"github.com/utafrali/InventoryGo/pkg/retry"
)

// StockHandler handles stock levels, movements, transfers and adjustments.
type StockHandler struct {
	base
	ledger      *service.LedgerService
	transfers   *service.TransferService
	adjustments *service.AdjustmentService
}

// NewStockHandler creates a stock HTTP handler.
func NewStockHandler(svc Services, b base) *StockHandler {
	return &StockHandler{
		base:        b,
		ledger:      svc.Ledger,
		transfers:   svc.Transfers,
		adjustments: svc.Adjustments,
	}
}

// --- Request DTOs ---

// StockChangeRequest adds or removes units at one warehouse.
type StockChangeRequest struct {
	ProductID    uuid.UUID  `json:"product_id" validate:"required"`
	WarehouseID  uuid.UUID  `json:"warehouse_id" validate:"required"`
	Quantity     int        `json:"quantity" validate:"gt=0"`
	MovementType string     `json:"movement_type" validate:"omitempty,oneof=RECEIPT SHIPMENT ADJUSTMENT TRANSFER"`
	Reference    string     `json:"reference" validate:"max=100"`
	Reason       string     `json:"reason" validate:"max=500"`
	PerformedBy  *uuid.UUID `json:"performed_by"`
}

func (req StockChangeRequest) change(r *http.Request) service.StockChange {
	mt := domain.MovementType(req.MovementType)
	if mt == "" {
		mt = domain.MovementAdjustment
	}
	return service.StockChange{
		ProductID:    req.ProductID,
		WarehouseID:  req.WarehouseID,
		Quantity:     req.Quantity,
		MovementType: mt,
		Reference:    req.Reference,
		Reason:       req.Reason,
		PerformedBy:  actor(r, req.PerformedBy),
	}
}

// TransferRequest moves units between two warehouses.
type TransferRequest struct {
	ProductID       uuid.UUID  `json:"product_id" validate:"required"`
	FromWarehouseID uuid.UUID  `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   uuid.UUID  `json:"to_warehouse_id" validate:"required"`
	Quantity        int        `json:"quantity" validate:"gt=0"`
	Reason          string     `json:"reason" validate:"max=500"`
	PerformedBy     *uuid.UUID `json:"performed_by"`
}

// ProposeAdjustmentRequest proposes a manual stock correction.
type ProposeAdjustmentRequest struct {
	ProductID      uuid.UUID  `json:"product_id" validate:"required"`
	WarehouseID    uuid.UUID  `json:"warehouse_id" validate:"required"`
	QuantityChange int        `json:"quantity_change" validate:"ne=0"`
	Type           string     `json:"adjustment_type" validate:"required,oneof=ADD REMOVE CORRECTION"`
	Reason         string     `json:"reason" validate:"required,max=500"`
	Notes          string     `json:"notes" validate:"max=2000"`
	PerformedBy    *uuid.UUID `json:"performed_by"`
}

// DecideAdjustmentRequest names the approver of a decision.
type DecideAdjustmentRequest struct {
	ApproverID *uuid.UUID `json:"approver_id"`
}

// --- Stock ---

// ListStock handles GET /api/v1/stock
func (h *StockHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := queryID(w, r, "product_id")
	if !ok {
		return
	}
	warehouseID, ok := queryID(w, r, "warehouse_id")
	if !ok {
		return
	}
	levels, err := h.ledger.ListStock(r.Context(), domain.StockFilter{ProductID: productID, WarehouseID: warehouseID})
	h.reply(w, r, http.StatusOK, levels, err)
}

// GetQuantity handles GET /api/v1/stock/{productId}/{warehouseId}
func (h *StockHandler) GetQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	warehouseID, ok := pathID(w, r, "warehouseId")
	if !ok {
		return
	}
	qty, err := h.ledger.GetQuantity(r.Context(), productID, warehouseID)
	h.reply(w, r, http.StatusOK, map[string]any{
		"product_id":   productID,
		"warehouse_id": warehouseID,
		"quantity":     qty,
	}, err)
}

// AddStock handles POST /api/v1/stock/add
func (h *StockHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req StockChangeRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	change := req.change(r)
	res, err := retry.OnConflict(r.Context(), h.policy, "add stock", func(ctx context.Context) (*service.StockResult, error) {
		return h.ledger.AddStock(ctx, change)
	})
	h.reply(w, r, http.StatusOK, res, err)
}

// RemoveStock handles POST /api/v1/stock/remove
func (h *StockHandler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	var req StockChangeRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	change := req.change(r)
	res, err := retry.OnConflict(r.Context(), h.policy, "remove stock", func(ctx context.Context) (*service.StockResult, error) {
		return h.ledger.RemoveStock(ctx, change)
	})
	h.reply(w, r, http.StatusOK, res, err)
}

// ListMovements handles GET /api/v1/stock/movements
func (h *StockHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	productID, ok := queryID(w, r, "product_id")
	if !ok {
		return
	}
	warehouseID, ok := queryID(w, r, "warehouse_id")
	if !ok {
		return
	}
	filter := domain.MovementFilter{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Type:        domain.MovementType(r.URL.Query().Get("type")),
		Reference:   r.URL.Query().Get("reference"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 1000 {
			badParam(w, "limit must be an integer between 1 and 1000")
			return
		}
		filter.Limit = limit
	}
	movements, err := h.ledger.ListMovements(r.Context(), filter)
	h.reply(w, r, http.StatusOK, movements, err)
}

// Valuation handles GET /api/v1/stock/valuation
func (h *StockHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	warehouseID, ok := queryID(w, r, "warehouse_id")
	if !ok {
		return
	}
	categoryID, ok := queryID(w, r, "category_id")
	if !ok {
		return
	}
	v, err := h.ledger.Valuation(r.Context(), warehouseID, categoryID)
	h.reply(w, r, http.StatusOK, v, err)
}

// --- Transfers ---

// Transfer handles POST /api/v1/transfers
func (h *StockHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	in := service.TransferInput{
		ProductID:       req.ProductID,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		Quantity:        req.Quantity,
		Reason:          req.Reason,
		PerformedBy:     actor(r, req.PerformedBy),
	}
	res, err := retry.OnConflict(r.Context(), h.policy, "transfer stock", func(ctx context.Context) (*service.TransferResult, error) {
		return h.transfers.Transfer(ctx, in)
	})
	h.reply(w, r, http.StatusCreated, res, err)
}

// --- Adjustments ---

// ProposeAdjustment handles POST /api/v1/adjustments
func (h *StockHandler) ProposeAdjustment(w http.ResponseWriter, r *http.Request) {
	var req ProposeAdjustmentRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	adj, err := h.adjustments.Propose(r.Context(), service.ProposeAdjustmentInput{
		ProductID:      req.ProductID,
		WarehouseID:    req.WarehouseID,
		QuantityChange: req.QuantityChange,
		Type:           domain.AdjustmentType(req.Type),
		Reason:         req.Reason,
		Notes:          req.Notes,
		PerformedBy:    actor(r, req.PerformedBy),
	})
	h.reply(w, r, http.StatusCreated, adj, err)
}

// ListAdjustments handles GET /api/v1/adjustments
func (h *StockHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	productID, ok := queryID(w, r, "product_id")
	if !ok {
		return
	}
	warehouseID, ok := queryID(w, r, "warehouse_id")
	if !ok {
		return
	}
	out, err := h.adjustments.List(r.Context(), domain.AdjustmentFilter{
		Status:      domain.AdjustmentStatus(r.URL.Query().Get("status")),
		ProductID:   productID,
		WarehouseID: warehouseID,
	})
	h.reply(w, r, http.StatusOK, out, err)
}

// GetAdjustment handles GET /api/v1/adjustments/{id}
func (h *StockHandler) GetAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	adj, err := h.adjustments.Get(r.Context(), id)
	h.reply(w, r, http.StatusOK, adj, err)
}

// ApproveAdjustment handles POST /api/v1/adjustments/{id}/approve
func (h *StockHandler) ApproveAdjustment(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// RejectAdjustment handles POST /api/v1/adjustments/{id}/reject
func (h *StockHandler) RejectAdjustment(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *StockHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req DecideAdjustmentRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	approver := actor(r, req.ApproverID)
	if approver == nil {
		badParam(w, "approver_id or X-Actor-ID is required")
		return
	}
	adj, err := retry.OnConflict(r.Context(), h.policy, "decide adjustment", func(ctx context.Context) (*domain.StockAdjustment, error) {
		return h.adjustments.Decide(ctx, id, approve, *approver)
	})
	h.reply(w, r, http.StatusOK, adj, err)
}

// ApplyAdjustment handles POST /api/v1/adjustments/{id}/apply
func (h *StockHandler) ApplyAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	adj, err := retry.OnConflict(r.Context(), h.policy, "apply adjustment", func(ctx context.Context) (*domain.StockAdjustment, error) {
		return h.adjustments.Apply(ctx, id)
	})
	h.reply(w, r, http.StatusOK, adj, err)
}
