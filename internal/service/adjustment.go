package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/identity"
	"github.com/utafrali/InventoryGo/internal/repository"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// ProposeAdjustmentInput proposes a manual correction of QuantityChange units.
type ProposeAdjustmentInput struct {
	ProductID      uuid.UUID
	WarehouseID    uuid.UUID
	QuantityChange int
	Type           domain.AdjustmentType
	Reason         string
	Notes          string
	PerformedBy    *uuid.UUID
}

// AdjustmentService runs the propose, approve, apply workflow for manual
// stock corrections.
type AdjustmentService struct {
	adjustments repository.AdjustmentRepository
	products    repository.ProductRepository
	warehouses  repository.WarehouseRepository
	ledger      *LedgerService
	identity    identity.Resolver
	logger      *slog.Logger
	now         Clock
}

// NewAdjustmentService creates an adjustment workflow.
func NewAdjustmentService(
	adjustments repository.AdjustmentRepository,
	products repository.ProductRepository,
	warehouses repository.WarehouseRepository,
	ledger *LedgerService,
	resolver identity.Resolver,
	logger *slog.Logger,
) *AdjustmentService {
	return &AdjustmentService{
		adjustments: adjustments,
		products:    products,
		warehouses:  warehouses,
		ledger:      ledger,
		identity:    resolver,
		logger:      logger,
		now:         utcNow,
	}
}

// Propose records a PENDING adjustment with a snapshot of the quantity it
// expects to change. Stock is not touched.
func (s *AdjustmentService) Propose(ctx context.Context, in ProposeAdjustmentInput) (*domain.StockAdjustment, error) {
	if in.QuantityChange == 0 {
		return nil, apperrors.InvalidAmount("quantity_change", in.QuantityChange)
	}
	if !in.Type.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown adjustment type %q", in.Type))
	}
	if in.Type == domain.AdjustmentAdd && in.QuantityChange < 0 {
		return nil, apperrors.InvalidInput("an ADD adjustment needs a positive quantity change")
	}
	if in.Type == domain.AdjustmentRemove && in.QuantityChange > 0 {
		return nil, apperrors.InvalidInput("a REMOVE adjustment needs a negative quantity change")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperrors.InvalidInput("reason is required")
	}
	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return nil, fmt.Errorf("propose adjustment: %w", err)
	}
	if _, err := s.warehouses.GetByID(ctx, in.WarehouseID); err != nil {
		return nil, fmt.Errorf("propose adjustment: %w", err)
	}
	if err := identity.ResolveOptional(ctx, s.identity, in.PerformedBy); err != nil {
		return nil, fmt.Errorf("propose adjustment: resolve performer: %w", err)
	}

	before, err := s.ledger.GetQuantity(ctx, in.ProductID, in.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("propose adjustment: %w", err)
	}
	after := before + in.QuantityChange
	if after < 0 {
		return nil, apperrors.InsufficientStock(in.ProductID.String(), before, -in.QuantityChange)
	}

	now := s.now()
	a := &domain.StockAdjustment{
		ID:             uuid.New(),
		ProductID:      in.ProductID,
		WarehouseID:    in.WarehouseID,
		QuantityChange: in.QuantityChange,
		QuantityBefore: before,
		QuantityAfter:  after,
		Type:           in.Type,
		Reason:         in.Reason,
		Notes:          in.Notes,
		Status:         domain.AdjustmentPending,
		PerformedBy:    in.PerformedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.adjustments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("propose adjustment: %w", err)
	}

	s.logger.InfoContext(ctx, "stock adjustment proposed",
		slog.String("adjustment_id", a.ID.String()),
		slog.String("product_id", a.ProductID.String()),
		slog.Int("quantity_change", a.QuantityChange),
	)
	return a, nil
}

// Decide approves or rejects a PENDING adjustment.
func (s *AdjustmentService) Decide(ctx context.Context, id uuid.UUID, approve bool, approverID uuid.UUID) (*domain.StockAdjustment, error) {
	if _, err := s.identity.Resolve(ctx, approverID); err != nil {
		return nil, fmt.Errorf("decide adjustment: resolve approver: %w", err)
	}
	a, err := s.adjustments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("decide adjustment: %w", err)
	}

	target := domain.AdjustmentRejected
	if approve {
		target = domain.AdjustmentApproved
	}
	if !a.CanTransitionTo(target) {
		return nil, apperrors.InvalidTransition("stock adjustment", string(a.Status), string(target))
	}

	a.Status = target
	a.ApprovedBy = &approverID
	a.UpdatedAt = s.now()
	if err := s.adjustments.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("decide adjustment: %w", err)
	}

	s.logger.InfoContext(ctx, "stock adjustment decided",
		slog.String("adjustment_id", a.ID.String()),
		slog.String("status", string(a.Status)),
		slog.String("approver_id", approverID.String()),
	)
	return a, nil
}

// Apply changes stock by an APPROVED adjustment exactly once.
func (s *AdjustmentService) Apply(ctx context.Context, id uuid.UUID) (*domain.StockAdjustment, error) {
	a, err := s.adjustments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}
	switch {
	case a.Status == domain.AdjustmentPending:
		return nil, apperrors.PendingApproval("stock adjustment", a.ID.String())
	case a.Status == domain.AdjustmentRejected:
		return nil, apperrors.InvalidTransition("stock adjustment", string(a.Status), "APPLIED")
	case a.Applied:
		return nil, apperrors.InvalidTransition("stock adjustment", "APPLIED", "APPLIED")
	}

	change := StockChange{
		ProductID:    a.ProductID,
		WarehouseID:  a.WarehouseID,
		Quantity:     abs(a.QuantityChange),
		MovementType: domain.MovementAdjustment,
		Reference:    a.ID.String(),
		Reason:       a.Reason,
		PerformedBy:  a.PerformedBy,
	}
	var res *StockResult
	if a.QuantityChange > 0 {
		res, err = s.ledger.AddStock(ctx, change)
	} else {
		res, err = s.ledger.RemoveStock(ctx, change)
	}
	if err != nil {
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}

	now := s.now()
	a.Applied = true
	a.AppliedAt = &now
	a.QuantityBefore = res.PreviousQuantity
	a.QuantityAfter = res.Record.Quantity
	a.UpdatedAt = now
	if err := s.adjustments.Update(ctx, a); err != nil {
		return nil, compensate(ctx, s.logger, "apply adjustment", fmt.Errorf("apply adjustment: %w", err),
			func(ctx context.Context) error {
				return s.ledger.undo(ctx, []*StockResult{res}, "adjustment compensation")
			})
	}

	s.logger.InfoContext(ctx, "stock adjustment applied",
		slog.String("adjustment_id", a.ID.String()),
		slog.Int("quantity_before", a.QuantityBefore),
		slog.Int("quantity_after", a.QuantityAfter),
	)
	return a, nil
}

// Get returns one adjustment.
func (s *AdjustmentService) Get(ctx context.Context, id uuid.UUID) (*domain.StockAdjustment, error) {
	a, err := s.adjustments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get adjustment: %w", err)
	}
	return a, nil
}

// List returns adjustments matching filter, newest first.
func (s *AdjustmentService) List(ctx context.Context, filter domain.AdjustmentFilter) ([]domain.StockAdjustment, error) {
	out, err := s.adjustments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	return out, nil
}
