package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/event"
	"github.com/utafrali/InventoryGo/internal/repository"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
	"github.com/utafrali/InventoryGo/pkg/retry"
)

// StockChange describes one quantity change at a (product, warehouse) pair.
// Quantity is always positive; the direction comes from the operation.
type StockChange struct {
	ProductID    uuid.UUID
	WarehouseID  uuid.UUID
	Quantity     int
	MovementType domain.MovementType
	Reference    string
	Reason       string
	PerformedBy  *uuid.UUID
}

// StockResult is the outcome of a committed stock change.
type StockResult struct {
	Record           *domain.StockRecord `json:"record"`
	Movement         *domain.Movement    `json:"movement,omitempty"`
	PreviousQuantity int                 `json:"previous_quantity"`
}

// Delta is the signed quantity change the result committed.
func (r *StockResult) Delta() int {
	return r.Record.Quantity - r.PreviousQuantity
}

// LedgerService owns every stock quantity. Each mutation re-reads the record
// and writes it with a compare-and-swap on its version together with the
// movement that explains it. A lost race surfaces as ConcurrentModification.
type LedgerService struct {
	stock      repository.StockRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
	producer   *event.Producer
	notifier   *event.LowStockNotifier
	metrics    *LedgerMetrics
	policy     retry.Policy
	logger     *slog.Logger
	now        Clock
}

// NewLedgerService creates a ledger. producer, notifier and metrics may be nil.
func NewLedgerService(
	stock repository.StockRepository,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	producer *event.Producer,
	notifier *event.LowStockNotifier,
	metrics *LedgerMetrics,
	policy retry.Policy,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		stock:      stock,
		products:   products,
		categories: categories,
		producer:   producer,
		notifier:   notifier,
		metrics:    metrics,
		policy:     policy,
		logger:     logger,
		now:        utcNow,
	}
}

// GetQuantity returns the quantity on hand, or 0 when the pair has no record.
func (s *LedgerService) GetQuantity(ctx context.Context, productID, warehouseID uuid.UUID) (int, error) {
	rec, err := s.stock.Get(ctx, productID, warehouseID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get stock quantity: %w", err)
	}
	return rec.Quantity, nil
}

// AddStock increases the quantity at the pair and records a movement into the
// warehouse. The record is created on first use.
func (s *LedgerService) AddStock(ctx context.Context, c StockChange) (*StockResult, error) {
	mv, err := s.prepare(ctx, c, nil, &c.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("add stock: %w", err)
	}
	res, err := s.add(ctx, c, mv)
	if err != nil {
		return nil, fmt.Errorf("add stock: %w", err)
	}
	return res, nil
}

// RemoveStock decreases the quantity at the pair and records a movement out of
// the warehouse. A pair without a record holds zero units.
func (s *LedgerService) RemoveStock(ctx context.Context, c StockChange) (*StockResult, error) {
	mv, err := s.prepare(ctx, c, &c.WarehouseID, nil)
	if err != nil {
		return nil, fmt.Errorf("remove stock: %w", err)
	}
	res, err := s.remove(ctx, c, mv)
	if err != nil {
		return nil, fmt.Errorf("remove stock: %w", err)
	}
	return res, nil
}

// prepare validates a public change and builds its movement.
func (s *LedgerService) prepare(ctx context.Context, c StockChange, from, to *uuid.UUID) (*domain.Movement, error) {
	if c.Quantity <= 0 {
		return nil, apperrors.InvalidAmount("quantity", c.Quantity)
	}
	mv := s.newMovement(c, from, to)
	if !mv.HasValidEnds() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("movement type %s cannot be used for this change", mv.Type))
	}
	if _, err := s.products.GetByID(ctx, c.ProductID); err != nil {
		return nil, err
	}
	return mv, nil
}

func (s *LedgerService) newMovement(c StockChange, from, to *uuid.UUID) *domain.Movement {
	typ := c.MovementType
	if typ == "" {
		typ = domain.MovementAdjustment
	}
	return &domain.Movement{
		ID:              uuid.New(),
		ProductID:       c.ProductID,
		FromWarehouseID: from,
		ToWarehouseID:   to,
		Quantity:        c.Quantity,
		Type:            typ,
		Reference:       c.Reference,
		Reason:          c.Reason,
		PerformedBy:     c.PerformedBy,
		CreatedAt:       s.now(),
	}
}

// add commits +c.Quantity with mv, which may be nil.
func (s *LedgerService) add(ctx context.Context, c StockChange, mv *domain.Movement) (*StockResult, error) {
	rec, err := s.stock.Get(ctx, c.ProductID, c.WarehouseID)
	if errors.Is(err, apperrors.ErrNotFound) {
		rec = &domain.StockRecord{
			ID:          uuid.New(),
			ProductID:   c.ProductID,
			WarehouseID: c.WarehouseID,
			Quantity:    c.Quantity,
		}
		if err := s.stock.Create(ctx, rec, mv); err != nil {
			s.metrics.rejected(err)
			return nil, err
		}
		res := &StockResult{Record: rec, Movement: mv}
		s.committed(ctx, res)
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stock record: %w", err)
	}

	updated, err := s.stock.UpdateQuantity(ctx, rec.ID, rec.Version, rec.Quantity+c.Quantity, mv)
	if err != nil {
		s.metrics.rejected(err)
		return nil, err
	}
	res := &StockResult{Record: updated, Movement: mv, PreviousQuantity: rec.Quantity}
	s.committed(ctx, res)
	return res, nil
}

// remove commits -c.Quantity with mv, which may be nil.
func (s *LedgerService) remove(ctx context.Context, c StockChange, mv *domain.Movement) (*StockResult, error) {
	rec, err := s.stock.Get(ctx, c.ProductID, c.WarehouseID)
	if errors.Is(err, apperrors.ErrNotFound) {
		err = apperrors.InsufficientStock(c.ProductID.String(), 0, c.Quantity)
		s.metrics.rejected(err)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get stock record: %w", err)
	}
	if rec.Quantity < c.Quantity {
		err = apperrors.InsufficientStock(c.ProductID.String(), rec.Quantity, c.Quantity)
		s.metrics.rejected(err)
		return nil, err
	}

	updated, err := s.stock.UpdateQuantity(ctx, rec.ID, rec.Version, rec.Quantity-c.Quantity, mv)
	if err != nil {
		s.metrics.rejected(err)
		return nil, err
	}
	res := &StockResult{Record: updated, Movement: mv, PreviousQuantity: rec.Quantity}
	s.committed(ctx, res)
	return res, nil
}

func (s *LedgerService) committed(ctx context.Context, res *StockResult) {
	delta := res.Delta()
	s.metrics.committed(delta)

	s.logger.InfoContext(ctx, "stock changed",
		slog.String("product_id", res.Record.ProductID.String()),
		slog.String("warehouse_id", res.Record.WarehouseID.String()),
		slog.Int("delta", delta),
		slog.Int("quantity", res.Record.Quantity),
		slog.Int64("version", res.Record.Version),
	)

	if err := s.producer.PublishStockChanged(ctx, res.Record, res.Movement, delta); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish stock changed event",
			slog.String("product_id", res.Record.ProductID.String()),
			slog.String("error", err.Error()),
		)
	}

	if delta >= 0 || s.notifier == nil {
		return
	}
	product, err := s.products.GetByID(ctx, res.Record.ProductID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping low stock check",
			slog.String("product_id", res.Record.ProductID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	s.notifier.Notify(ctx, product, res.Record)
}

// undo reverses committed results, newest first. A result that carried a
// movement is reversed with an ADJUSTMENT movement so the log still explains
// every unit; one without a movement is reversed silently.
func (s *LedgerService) undo(ctx context.Context, results []*StockResult, reason string) error {
	for i := len(results) - 1; i >= 0; i-- {
		res := results[i]
		delta := res.Delta()
		if delta == 0 {
			continue
		}
		c := StockChange{
			ProductID:    res.Record.ProductID,
			WarehouseID:  res.Record.WarehouseID,
			Quantity:     abs(delta),
			MovementType: domain.MovementAdjustment,
			Reason:       reason,
		}
		if res.Movement != nil {
			c.Reference = res.Movement.Reference
			c.PerformedBy = res.Movement.PerformedBy
		}
		err := retry.Do(ctx, s.policy, "undo stock change", func(ctx context.Context) error {
			var mv *domain.Movement
			if delta > 0 {
				if res.Movement != nil {
					mv = s.newMovement(c, &c.WarehouseID, nil)
				}
				_, err := s.remove(ctx, c, mv)
				return err
			}
			if res.Movement != nil {
				mv = s.newMovement(c, nil, &c.WarehouseID)
			}
			_, err := s.add(ctx, c, mv)
			return err
		})
		if err != nil {
			return fmt.Errorf("undo stock change for product %s: %w", c.ProductID, err)
		}
	}
	return nil
}

// StockStatus classifies qty for product as CRITICAL, LOW or NORMAL.
func (s *LedgerService) StockStatus(product *domain.Product, qty int) string {
	return product.StockStatus(qty)
}

// ListStock returns stock levels with their product thresholds and status.
func (s *LedgerService) ListStock(ctx context.Context, filter domain.StockFilter) ([]domain.StockLevel, error) {
	levels, err := s.stock.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	for i := range levels {
		p := domain.Product{ReorderLevel: levels[i].ReorderLevel, MinStockLevel: levels[i].MinStockLevel}
		levels[i].Status = p.StockStatus(levels[i].Quantity)
	}
	return levels, nil
}

// ListMovements returns movement history, newest first.
func (s *LedgerService) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown movement type %q", filter.Type))
	}
	movements, err := s.stock.ListMovements(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

// Valuation values active stock, optionally for one warehouse and one
// category. A category includes every category beneath it.
func (s *LedgerService) Valuation(ctx context.Context, warehouseID, categoryID *uuid.UUID) (*domain.Valuation, error) {
	filter := domain.ValuationFilter{WarehouseID: warehouseID}
	if categoryID != nil {
		all, err := s.categories.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		tree := domain.NewCategoryTree(all)
		if _, ok := tree.Get(*categoryID); !ok {
			return nil, apperrors.NotFound("category", categoryID.String())
		}
		filter.CategoryIDs = append([]uuid.UUID{*categoryID}, tree.Descendants(*categoryID)...)
	}

	lines, err := s.stock.ValuationLines(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("stock valuation: %w", err)
	}
	v := domain.ValueStock(warehouseID, lines)
	v.CategoryID = categoryID
	return &v, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
