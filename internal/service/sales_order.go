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

const (
	resourceSalesOrder = "sales order"

	reasonFulfilledCancellation = "cancellation of fulfilled sales order"
)

// SalesOrderItemInput is one ordered line. A nil UnitPrice takes the
// product's current price.
type SalesOrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
}

// CreateSalesOrderInput opens a PENDING sales order.
type CreateSalesOrderInput struct {
	CustomerID      uuid.UUID
	WarehouseID     uuid.UUID
	Items           []SalesOrderItemInput
	TaxAmount       decimal.Decimal
	ShippingCost    decimal.Decimal
	RequiredDate    *time.Time
	ShippingAddress string
	Notes           string
	CreatedBy       *uuid.UUID
}

// UpdateSalesOrderInput changes header fields of a PENDING order. Nil fields
// are left unchanged.
type UpdateSalesOrderInput struct {
	TaxAmount       *decimal.Decimal
	ShippingCost    *decimal.Decimal
	RequiredDate    *time.Time
	ShippingAddress *string
	Notes           *string
}

// SalesOrderService runs the sales order state machine and removes fulfilled
// quantities from the ledger.
type SalesOrderService struct {
	orders     repository.SalesOrderRepository
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	ledger     *LedgerService
	numbers    *NumberGenerator
	identity   identity.Resolver
	producer   *event.Producer
	logger     *slog.Logger
	now        Clock
}

// NewSalesOrderService creates a sales order service.
func NewSalesOrderService(
	orders repository.SalesOrderRepository,
	products repository.ProductRepository,
	warehouses repository.WarehouseRepository,
	ledger *LedgerService,
	numbers *NumberGenerator,
	resolver identity.Resolver,
	producer *event.Producer,
	logger *slog.Logger,
) *SalesOrderService {
	return &SalesOrderService{
		orders:     orders,
		products:   products,
		warehouses: warehouses,
		ledger:     ledger,
		numbers:    numbers,
		identity:   resolver,
		producer:   producer,
		logger:     logger,
		now:        utcNow,
	}
}

// Create opens a PENDING order. The customer's name and email are copied onto
// the order and never refreshed.
func (s *SalesOrderService) Create(ctx context.Context, in CreateSalesOrderInput) (*domain.SalesOrder, error) {
	if err := nonNegative("tax_amount", in.TaxAmount); err != nil {
		return nil, err
	}
	if err := nonNegative("shipping_cost", in.ShippingCost); err != nil {
		return nil, err
	}
	customer, err := s.identity.Resolve(ctx, in.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("create sales order: resolve customer: %w", err)
	}
	if _, err := s.warehouses.GetByID(ctx, in.WarehouseID); err != nil {
		return nil, fmt.Errorf("create sales order: %w", err)
	}
	if err := identity.ResolveOptional(ctx, s.identity, in.CreatedBy); err != nil {
		return nil, fmt.Errorf("create sales order: resolve creator: %w", err)
	}

	items := make([]domain.SalesOrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		item, err := s.newItem(ctx, it)
		if err != nil {
			return nil, fmt.Errorf("create sales order: %w", err)
		}
		items = append(items, *item)
	}

	number, err := s.numbers.Next(ctx, PrefixSalesOrder)
	if err != nil {
		return nil, fmt.Errorf("create sales order: %w", err)
	}

	now := s.now()
	o := &domain.SalesOrder{
		ID:              uuid.New(),
		Number:          number,
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		WarehouseID:     in.WarehouseID,
		Status:          domain.SalesOrderPending,
		Items:           items,
		TaxAmount:       in.TaxAmount,
		ShippingCost:    in.ShippingCost,
		OrderDate:       now,
		RequiredDate:    in.RequiredDate,
		ShippingAddress: in.ShippingAddress,
		Notes:           in.Notes,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.RecalculateTotals()

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create sales order: %w", err)
	}

	s.logger.InfoContext(ctx, "sales order created",
		slog.String("sales_order_id", o.ID.String()),
		slog.String("number", o.Number),
		slog.String("customer_id", o.CustomerID.String()),
	)
	return o, nil
}

func (s *SalesOrderService) newItem(ctx context.Context, in SalesOrderItemInput) (*domain.SalesOrderItem, error) {
	if in.Quantity <= 0 {
		return nil, apperrors.InvalidAmount("quantity", in.Quantity)
	}
	product, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperrors.InvalidInput(fmt.Sprintf("product %s is not active", product.SKU))
	}
	price := product.UnitPrice
	if in.UnitPrice != nil {
		if in.UnitPrice.Sign() < 0 {
			return nil, apperrors.InvalidAmount("unit_price", *in.UnitPrice)
		}
		price = *in.UnitPrice
	}
	return &domain.SalesOrderItem{
		ID:        uuid.New(),
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		UnitPrice: price,
	}, nil
}

func (s *SalesOrderService) editable(ctx context.Context, id uuid.UUID) (*domain.SalesOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsEditable() {
		return nil, apperrors.OrderNotEditable(resourceSalesOrder, string(o.Status))
	}
	return o, nil
}

// Update changes header fields of a PENDING order.
func (s *SalesOrderService) Update(ctx context.Context, id uuid.UUID, in UpdateSalesOrderInput) (*domain.SalesOrder, error) {
	o, err := s.editable(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update sales order: %w", err)
	}
	if in.TaxAmount != nil {
		if err := nonNegative("tax_amount", *in.TaxAmount); err != nil {
			return nil, err
		}
		o.TaxAmount = *in.TaxAmount
	}
	if in.ShippingCost != nil {
		if err := nonNegative("shipping_cost", *in.ShippingCost); err != nil {
			return nil, err
		}
		o.ShippingCost = *in.ShippingCost
	}
	if in.RequiredDate != nil {
		o.RequiredDate = in.RequiredDate
	}
	if in.ShippingAddress != nil {
		o.ShippingAddress = *in.ShippingAddress
	}
	if in.Notes != nil {
		o.Notes = *in.Notes
	}
	o.RecalculateTotals()
	return s.save(ctx, o, o.Status, "update sales order")
}

// AddItem appends a line to a PENDING order.
func (s *SalesOrderService) AddItem(ctx context.Context, id uuid.UUID, in SalesOrderItemInput) (*domain.SalesOrder, error) {
	o, err := s.editable(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("add sales order item: %w", err)
	}
	item, err := s.newItem(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("add sales order item: %w", err)
	}
	o.Items = append(o.Items, *item)
	o.RecalculateTotals()
	return s.save(ctx, o, o.Status, "add sales order item")
}

// RemoveItem drops a line from a PENDING order.
func (s *SalesOrderService) RemoveItem(ctx context.Context, id, itemID uuid.UUID) (*domain.SalesOrder, error) {
	o, err := s.editable(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("remove sales order item: %w", err)
	}
	kept := o.Items[:0]
	for _, it := range o.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(o.Items) {
		return nil, apperrors.NotFound("sales order item", itemID.String())
	}
	o.Items = kept
	o.RecalculateTotals()
	return s.save(ctx, o, o.Status, "remove sales order item")
}

// Confirm accepts a PENDING order when every line is currently available.
// Nothing is deducted.
func (s *SalesOrderService) Confirm(ctx context.Context, id uuid.UUID) (*domain.SalesOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("confirm sales order: %w", err)
	}
	if err := s.transition(o, domain.SalesOrderConfirmed); err != nil {
		return nil, err
	}
	if len(o.Items) == 0 {
		return nil, apperrors.InvalidInput("sales order has no items")
	}
	if err := s.checkAvailability(ctx, o); err != nil {
		return nil, fmt.Errorf("confirm sales order: %w", err)
	}
	from := o.Status
	o.Status = domain.SalesOrderConfirmed
	return s.save(ctx, o, from, "confirm sales order")
}

// checkAvailability compares the summed demand per product with stock on hand.
func (s *SalesOrderService) checkAvailability(ctx context.Context, o *domain.SalesOrder) error {
	for productID, wanted := range o.QuantitiesByProduct() {
		have, err := s.ledger.GetQuantity(ctx, productID, o.WarehouseID)
		if err != nil {
			return err
		}
		if have < wanted {
			return apperrors.InsufficientStock(productID.String(), have, wanted)
		}
	}
	return nil
}

// Fulfill removes every line of a CONFIRMED order from stock. On any failure
// the lines already removed are put back and the order stays CONFIRMED.
func (s *SalesOrderService) Fulfill(ctx context.Context, id uuid.UUID) (*domain.SalesOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fulfill sales order: %w", err)
	}
	if err := s.transition(o, domain.SalesOrderFulfilled); err != nil {
		return nil, err
	}
	if err := s.checkAvailability(ctx, o); err != nil {
		return nil, fmt.Errorf("fulfill sales order: %w", err)
	}

	removed := make([]*StockResult, 0, len(o.Items))
	for _, it := range o.Items {
		res, err := s.ledger.RemoveStock(ctx, StockChange{
			ProductID:    it.ProductID,
			WarehouseID:  o.WarehouseID,
			Quantity:     it.Quantity,
			MovementType: domain.MovementShipment,
			Reference:    o.Number,
			Reason:       "sales order fulfillment",
		})
		if err != nil {
			return nil, s.undoStock(ctx, "fulfill sales order", removed, fmt.Errorf("fulfill sales order: %w", err))
		}
		removed = append(removed, res)
	}

	from := o.Status
	o.Status = domain.SalesOrderFulfilled
	saved, err := s.save(ctx, o, from, "fulfill sales order")
	if err != nil {
		return nil, s.undoStock(ctx, "fulfill sales order", removed, err)
	}
	return saved, nil
}

// Ship advances a FULFILLED order to SHIPPED.
func (s *SalesOrderService) Ship(ctx context.Context, id uuid.UUID) (*domain.SalesOrder, error) {
	return s.advance(ctx, id, domain.SalesOrderShipped, "ship sales order")
}

// Deliver advances a SHIPPED order to DELIVERED.
func (s *SalesOrderService) Deliver(ctx context.Context, id uuid.UUID) (*domain.SalesOrder, error) {
	return s.advance(ctx, id, domain.SalesOrderDelivered, "deliver sales order")
}

func (s *SalesOrderService) advance(ctx context.Context, id uuid.UUID, target domain.SalesOrderStatus, op string) (*domain.SalesOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.transition(o, target); err != nil {
		return nil, err
	}
	from := o.Status
	o.Status = target
	return s.save(ctx, o, from, op)
}

// Cancel cancels an order that has not shipped. A FULFILLED order has its
// lines returned to stock first; if that fails the order stays FULFILLED.
func (s *SalesOrderService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.SalesOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cancel sales order: %w", err)
	}
	if err := s.transition(o, domain.SalesOrderCancelled); err != nil {
		return nil, err
	}

	var restocked []*StockResult
	if o.Status == domain.SalesOrderFulfilled {
		for _, it := range o.Items {
			res, err := s.ledger.AddStock(ctx, StockChange{
				ProductID:    it.ProductID,
				WarehouseID:  o.WarehouseID,
				Quantity:     it.Quantity,
				MovementType: domain.MovementAdjustment,
				Reference:    o.Number,
				Reason:       reasonFulfilledCancellation,
			})
			if err != nil {
				return nil, s.undoStock(ctx, "cancel sales order", restocked, fmt.Errorf("cancel sales order: %w", err))
			}
			restocked = append(restocked, res)
		}
	}

	from := o.Status
	o.Status = domain.SalesOrderCancelled
	if reason != "" {
		o.AppendNote("[CANCELLED] " + reason)
	}
	saved, err := s.save(ctx, o, from, "cancel sales order")
	if err != nil {
		return nil, s.undoStock(ctx, "cancel sales order", restocked, err)
	}
	return saved, nil
}

func (s *SalesOrderService) undoStock(ctx context.Context, op string, results []*StockResult, cause error) error {
	if len(results) == 0 {
		return cause
	}
	return compensate(ctx, s.logger, op, cause, func(ctx context.Context) error {
		return s.ledger.undo(ctx, results, op+" compensation")
	})
}

// Get returns one order with its items.
func (s *SalesOrderService) Get(ctx context.Context, id uuid.UUID) (*domain.SalesOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sales order: %w", err)
	}
	return o, nil
}

// List returns orders matching filter, newest first.
func (s *SalesOrderService) List(ctx context.Context, filter domain.SalesOrderFilter) ([]domain.SalesOrder, error) {
	out, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list sales orders: %w", err)
	}
	return out, nil
}

func (s *SalesOrderService) transition(o *domain.SalesOrder, target domain.SalesOrderStatus) error {
	if !o.CanTransitionTo(target) {
		return apperrors.InvalidTransition(resourceSalesOrder, string(o.Status), string(target))
	}
	return nil
}

// save writes o and announces a status change when from differs.
func (s *SalesOrderService) save(ctx context.Context, o *domain.SalesOrder, from domain.SalesOrderStatus, op string) (*domain.SalesOrder, error) {
	o.UpdatedAt = s.now()
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if from != o.Status {
		if err := s.producer.PublishSalesOrderStatusChanged(ctx, o, from); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish sales order status changed event",
				slog.String("sales_order_id", o.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, op,
		slog.String("sales_order_id", o.ID.String()),
		slog.String("status", string(o.Status)),
	)
	return o, nil
}
