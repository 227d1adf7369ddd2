package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/event"
	"github.com/utafrali/InventoryGo/internal/identity"
	"github.com/utafrali/InventoryGo/internal/repository"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

const resourcePurchaseOrder = "purchase order"

// PurchaseOrderItemInput is one ordered line.
type PurchaseOrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreatePurchaseOrderInput opens a DRAFT purchase order.
type CreatePurchaseOrderInput struct {
	SupplierID           uuid.UUID
	WarehouseID          uuid.UUID
	Items                []PurchaseOrderItemInput
	TaxAmount            decimal.Decimal
	DiscountAmount       decimal.Decimal
	OrderDate            *time.Time
	ExpectedDeliveryDate *time.Time
	Notes                string
	CreatedBy            *uuid.UUID
}

// UpdatePurchaseOrderInput changes header fields of an editable order. Nil
// fields are left unchanged.
type UpdatePurchaseOrderInput struct {
	ExpectedDeliveryDate *time.Time
	TaxAmount            *decimal.Decimal
	DiscountAmount       *decimal.Decimal
	Notes                *string
}

// ReceiveLine receives Quantity units against one order item.
type ReceiveLine struct {
	ItemID   uuid.UUID
	Quantity int
}

// ReceiveInput records a delivery against an APPROVED order.
type ReceiveInput struct {
	ActualDeliveryDate *time.Time
	Lines              []ReceiveLine
	PerformedBy        *uuid.UUID
}

// PurchaseOrderService runs the purchase order state machine and books
// receipts into the ledger.
type PurchaseOrderService struct {
	orders     repository.PurchaseOrderRepository
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	suppliers  repository.SupplierRepository
	ledger     *LedgerService
	numbers    *NumberGenerator
	identity   identity.Resolver
	producer   *event.Producer
	logger     *slog.Logger
	now        Clock
}

// NewPurchaseOrderService creates a purchase order service.
func NewPurchaseOrderService(
	orders repository.PurchaseOrderRepository,
	products repository.ProductRepository,
	warehouses repository.WarehouseRepository,
	suppliers repository.SupplierRepository,
	ledger *LedgerService,
	numbers *NumberGenerator,
	resolver identity.Resolver,
	producer *event.Producer,
	logger *slog.Logger,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		orders:     orders,
		products:   products,
		warehouses: warehouses,
		suppliers:  suppliers,
		ledger:     ledger,
		numbers:    numbers,
		identity:   resolver,
		producer:   producer,
		logger:     logger,
		now:        utcNow,
	}
}

// activeSupplier checks that the supplier exists and still takes orders.
func (s *PurchaseOrderService) activeSupplier(ctx context.Context, id uuid.UUID) error {
	sup, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !sup.IsActive {
		return apperrors.InvalidInput(fmt.Sprintf("supplier %s is inactive", sup.Code))
	}
	return nil
}

// Create opens a DRAFT order with a generated number and computed totals.
// The supplier must exist and be active.
func (s *PurchaseOrderService) Create(ctx context.Context, in CreatePurchaseOrderInput) (*domain.PurchaseOrder, error) {
	if in.SupplierID == uuid.Nil {
		return nil, apperrors.InvalidInput("supplier_id is required")
	}
	if err := nonNegative("tax_amount", in.TaxAmount); err != nil {
		return nil, err
	}
	if err := nonNegative("discount_amount", in.DiscountAmount); err != nil {
		return nil, err
	}
	if err := s.activeSupplier(ctx, in.SupplierID); err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}
	if _, err := s.warehouses.GetByID(ctx, in.WarehouseID); err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}
	if err := identity.ResolveOptional(ctx, s.identity, in.CreatedBy); err != nil {
		return nil, fmt.Errorf("create purchase order: resolve creator: %w", err)
	}

	items := make([]domain.PurchaseOrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		item, err := s.newItem(ctx, it)
		if err != nil {
			return nil, fmt.Errorf("create purchase order: %w", err)
		}
		items = append(items, *item)
	}

	number, err := s.numbers.Next(ctx, PrefixPurchaseOrder)
	if err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}

	now := s.now()
	orderDate := now
	if in.OrderDate != nil {
		orderDate = in.OrderDate.UTC()
	}
	o := &domain.PurchaseOrder{
		ID:                   uuid.New(),
		Number:               number,
		SupplierID:           in.SupplierID,
		WarehouseID:          in.WarehouseID,
		Status:               domain.PurchaseOrderDraft,
		Items:                items,
		TaxAmount:            in.TaxAmount,
		DiscountAmount:       in.DiscountAmount,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		Notes:                in.Notes,
		CreatedBy:            in.CreatedBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	o.RecalculateTotals()

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}

	s.logger.InfoContext(ctx, "purchase order created",
		slog.String("purchase_order_id", o.ID.String()),
		slog.String("number", o.Number),
		slog.Int("items", len(o.Items)),
	)
	return o, nil
}

func (s *PurchaseOrderService) newItem(ctx context.Context, in PurchaseOrderItemInput) (*domain.PurchaseOrderItem, error) {
	if in.Quantity <= 0 {
		return nil, apperrors.InvalidAmount("quantity", in.Quantity)
	}
	if in.UnitPrice.Sign() < 0 {
		return nil, apperrors.InvalidAmount("unit_price", in.UnitPrice)
	}
	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return nil, err
	}
	return &domain.PurchaseOrderItem{
		ID:              uuid.New(),
		ProductID:       in.ProductID,
		QuantityOrdered: in.Quantity,
		UnitPrice:       in.UnitPrice,
	}, nil
}

// editable loads an order that may still be edited.
func (s *PurchaseOrderService) editable(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsEditable() {
		return nil, apperrors.OrderNotEditable(resourcePurchaseOrder, string(o.Status))
	}
	return o, nil
}

// Update changes header fields of a DRAFT or SUBMITTED order.
func (s *PurchaseOrderService) Update(ctx context.Context, id uuid.UUID, in UpdatePurchaseOrderInput) (*domain.PurchaseOrder, error) {
	o, err := s.editable(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update purchase order: %w", err)
	}
	if in.TaxAmount != nil {
		if err := nonNegative("tax_amount", *in.TaxAmount); err != nil {
			return nil, err
		}
		o.TaxAmount = *in.TaxAmount
	}
	if in.DiscountAmount != nil {
		if err := nonNegative("discount_amount", *in.DiscountAmount); err != nil {
			return nil, err
		}
		o.DiscountAmount = *in.DiscountAmount
	}
	if in.ExpectedDeliveryDate != nil {
		o.ExpectedDeliveryDate = in.ExpectedDeliveryDate
	}
	if in.Notes != nil {
		o.Notes = *in.Notes
	}
	o.RecalculateTotals()
	return s.save(ctx, o, "update purchase order")
}

// AddItem appends a line to a DRAFT or SUBMITTED order.
func (s *PurchaseOrderService) AddItem(ctx context.Context, id uuid.UUID, in PurchaseOrderItemInput) (*domain.PurchaseOrder, error) {
	o, err := s.editable(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("add purchase order item: %w", err)
	}
	item, err := s.newItem(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("add purchase order item: %w", err)
	}
	o.Items = append(o.Items, *item)
	o.RecalculateTotals()
	return s.save(ctx, o, "add purchase order item")
}

// RemoveItem drops a line from a DRAFT or SUBMITTED order.
func (s *PurchaseOrderService) RemoveItem(ctx context.Context, id, itemID uuid.UUID) (*domain.PurchaseOrder, error) {
	o, err := s.editable(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("remove purchase order item: %w", err)
	}
	kept := o.Items[:0]
	for _, it := range o.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(o.Items) {
		return nil, apperrors.NotFound("purchase order item", itemID.String())
	}
	o.Items = kept
	o.RecalculateTotals()
	return s.save(ctx, o, "remove purchase order item")
}

// Submit sends a DRAFT order with at least one line for approval.
func (s *PurchaseOrderService) Submit(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("submit purchase order: %w", err)
	}
	if err := s.transition(o, domain.PurchaseOrderSubmitted); err != nil {
		return nil, err
	}
	if len(o.Items) == 0 {
		return nil, apperrors.InvalidInput("purchase order has no items")
	}
	o.Status = domain.PurchaseOrderSubmitted
	return s.save(ctx, o, "submit purchase order")
}

// Approve approves a SUBMITTED order on behalf of approverID.
func (s *PurchaseOrderService) Approve(ctx context.Context, id, approverID uuid.UUID) (*domain.PurchaseOrder, error) {
	if _, err := s.identity.Resolve(ctx, approverID); err != nil {
		return nil, fmt.Errorf("approve purchase order: resolve approver: %w", err)
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("approve purchase order: %w", err)
	}
	if err := s.transition(o, domain.PurchaseOrderApproved); err != nil {
		return nil, err
	}
	o.Status = domain.PurchaseOrderApproved
	o.ApprovedBy = &approverID
	return s.save(ctx, o, "approve purchase order")
}

// Reject returns a SUBMITTED order to DRAFT with the reason noted.
func (s *PurchaseOrderService) Reject(ctx context.Context, id uuid.UUID, reason string) (*domain.PurchaseOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reject purchase order: %w", err)
	}
	if o.Status != domain.PurchaseOrderSubmitted {
		return nil, apperrors.InvalidTransition(resourcePurchaseOrder, string(o.Status), string(domain.PurchaseOrderDraft))
	}
	o.Status = domain.PurchaseOrderDraft
	o.AppendNote("[REJECTED] " + reason)
	return s.save(ctx, o, "reject purchase order")
}

// Cancel cancels an order that has not been received.
func (s *PurchaseOrderService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.PurchaseOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cancel purchase order: %w", err)
	}
	if err := s.transition(o, domain.PurchaseOrderCancelled); err != nil {
		return nil, err
	}
	o.Status = domain.PurchaseOrderCancelled
	o.AppendNote("[CANCELLED] " + reason)
	return s.save(ctx, o, "cancel purchase order")
}

// Receive books delivered quantities into the order's warehouse. Either every
// line is booked and the order saved, or nothing changes.
func (s *PurchaseOrderService) Receive(ctx context.Context, id uuid.UUID, in ReceiveInput) (*domain.PurchaseOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("receive purchase order: %w", err)
	}
	if o.Status != domain.PurchaseOrderApproved {
		return nil, apperrors.InvalidTransition(resourcePurchaseOrder, string(o.Status), string(domain.PurchaseOrderReceived))
	}
	if len(in.Lines) == 0 {
		return nil, apperrors.InvalidInput("no lines to receive")
	}
	if err := identity.ResolveOptional(ctx, s.identity, in.PerformedBy); err != nil {
		return nil, fmt.Errorf("receive purchase order: resolve performer: %w", err)
	}

	pending := make(map[uuid.UUID]int, len(in.Lines))
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return nil, apperrors.InvalidAmount("quantity_received", line.Quantity)
		}
		item, ok := o.Item(line.ItemID)
		if !ok {
			return nil, apperrors.NotFound("purchase order item", line.ItemID.String())
		}
		pending[line.ItemID] += line.Quantity
		if item.QuantityReceived+pending[line.ItemID] > item.QuantityOrdered {
			return nil, apperrors.InvalidInput(fmt.Sprintf(
				"item %s would be over-received: ordered %d, received %d, receiving %d",
				item.ID, item.QuantityOrdered, item.QuantityReceived, pending[line.ItemID]))
		}
	}

	booked := make([]*StockResult, 0, len(in.Lines))
	units := 0
	for _, line := range in.Lines {
		item, _ := o.Item(line.ItemID)
		res, err := s.ledger.AddStock(ctx, StockChange{
			ProductID:    item.ProductID,
			WarehouseID:  o.WarehouseID,
			Quantity:     line.Quantity,
			MovementType: domain.MovementReceipt,
			Reference:    o.Number,
			Reason:       "purchase order receipt",
			PerformedBy:  in.PerformedBy,
		})
		if err != nil {
			return nil, s.undoReceipt(ctx, booked, fmt.Errorf("receive purchase order: %w", err))
		}
		booked = append(booked, res)
		item.QuantityReceived += line.Quantity
		units += line.Quantity
	}

	if o.IsFullyReceived() {
		o.Status = domain.PurchaseOrderReceived
		delivered := s.now()
		if in.ActualDeliveryDate != nil {
			delivered = in.ActualDeliveryDate.UTC()
		}
		o.ActualDeliveryDate = &delivered
	}
	o.UpdatedAt = s.now()
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, s.undoReceipt(ctx, booked, fmt.Errorf("receive purchase order: %w", err))
	}

	if err := s.producer.PublishPurchaseOrderReceived(ctx, o, units); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish purchase order received event",
			slog.String("purchase_order_id", o.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "purchase order received",
		slog.String("purchase_order_id", o.ID.String()),
		slog.String("status", string(o.Status)),
		slog.Int("units", units),
	)
	return o, nil
}

func (s *PurchaseOrderService) undoReceipt(ctx context.Context, booked []*StockResult, cause error) error {
	if len(booked) == 0 {
		return cause
	}
	return compensate(ctx, s.logger, "receive purchase order", cause, func(ctx context.Context) error {
		return s.ledger.undo(ctx, booked, "purchase order receipt compensation")
	})
}

// Delete removes a DRAFT order.
func (s *PurchaseOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete purchase order: %w", err)
	}
	if o.Status != domain.PurchaseOrderDraft {
		return apperrors.OrderNotEditable(resourcePurchaseOrder, string(o.Status))
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete purchase order: %w", err)
	}
	s.logger.InfoContext(ctx, "purchase order deleted", slog.String("purchase_order_id", id.String()))
	return nil
}

// Get returns one order with its items.
func (s *PurchaseOrderService) Get(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	return o, nil
}

// List returns orders matching filter, newest first.
func (s *PurchaseOrderService) List(ctx context.Context, filter domain.PurchaseOrderFilter) ([]domain.PurchaseOrder, error) {
	out, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	return out, nil
}

func (s *PurchaseOrderService) transition(o *domain.PurchaseOrder, target domain.PurchaseOrderStatus) error {
	if !o.CanTransitionTo(target) {
		return apperrors.InvalidTransition(resourcePurchaseOrder, string(o.Status), string(target))
	}
	return nil
}

func (s *PurchaseOrderService) save(ctx context.Context, o *domain.PurchaseOrder, op string) (*domain.PurchaseOrder, error) {
	o.UpdatedAt = s.now()
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.InfoContext(ctx, op,
		slog.String("purchase_order_id", o.ID.String()),
		slog.String("status", string(o.Status)),
	)
	return o, nil
}

func nonNegative(field string, v decimal.Decimal) error {
	if v.Sign() < 0 {
		return apperrors.InvalidAmount(field, v)
	}
	return nil
}
