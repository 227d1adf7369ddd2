package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/identity"
	"github.com/utafrali/InventoryGo/internal/repository"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// TransferInput moves Quantity units of a product between two warehouses.
type TransferInput struct {
	ProductID       uuid.UUID
	FromWarehouseID uuid.UUID
	ToWarehouseID   uuid.UUID
	Quantity        int
	Reason          string
	PerformedBy     *uuid.UUID
}

// TransferResult reports the quantities left at both ends.
type TransferResult struct {
	MovementID      uuid.UUID `json:"movement_id"`
	FromNewQuantity int       `json:"from_new_quantity"`
	ToNewQuantity   int       `json:"to_new_quantity"`
}

// TransferService moves stock between warehouses as one unit of work.
type TransferService struct {
	ledger     *LedgerService
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	identity   identity.Resolver
	logger     *slog.Logger
}

// NewTransferService creates a transfer engine.
func NewTransferService(
	ledger *LedgerService,
	products repository.ProductRepository,
	warehouses repository.WarehouseRepository,
	resolver identity.Resolver,
	logger *slog.Logger,
) *TransferService {
	return &TransferService{
		ledger:     ledger,
		products:   products,
		warehouses: warehouses,
		identity:   resolver,
		logger:     logger,
	}
}

// Transfer removes units from the source and adds them at the destination,
// writing a single TRANSFER movement. If the destination write fails the
// source is restored before the error is returned.
func (s *TransferService) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, apperrors.InvalidTransfer("source and destination warehouse must differ")
	}
	if in.Quantity < 1 {
		return nil, apperrors.InvalidTransfer(fmt.Sprintf("quantity must be at least 1, got %d", in.Quantity))
	}
	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	for _, id := range []uuid.UUID{in.FromWarehouseID, in.ToWarehouseID} {
		if _, err := s.warehouses.GetByID(ctx, id); err != nil {
			return nil, fmt.Errorf("transfer: %w", err)
		}
	}
	if err := identity.ResolveOptional(ctx, s.identity, in.PerformedBy); err != nil {
		return nil, fmt.Errorf("transfer: resolve performer: %w", err)
	}

	source := StockChange{
		ProductID:    in.ProductID,
		WarehouseID:  in.FromWarehouseID,
		Quantity:     in.Quantity,
		MovementType: domain.MovementTransfer,
		Reason:       in.Reason,
		PerformedBy:  in.PerformedBy,
	}
	removed, err := s.ledger.remove(ctx, source, nil)
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	dest := source
	dest.WarehouseID = in.ToWarehouseID
	mv := s.ledger.newMovement(dest, &in.FromWarehouseID, &in.ToWarehouseID)
	added, err := s.ledger.add(ctx, dest, mv)
	if err != nil {
		return nil, compensate(ctx, s.logger, "transfer", fmt.Errorf("transfer: %w", err),
			func(ctx context.Context) error {
				return s.ledger.undo(ctx, []*StockResult{removed}, "transfer compensation")
			})
	}

	s.logger.InfoContext(ctx, "stock transferred",
		slog.String("product_id", in.ProductID.String()),
		slog.String("from_warehouse_id", in.FromWarehouseID.String()),
		slog.String("to_warehouse_id", in.ToWarehouseID.String()),
		slog.Int("quantity", in.Quantity),
		slog.String("movement_id", mv.ID.String()),
	)

	return &TransferResult{
		MovementID:      mv.ID,
		FromNewQuantity: removed.Record.Quantity,
		ToNewQuantity:   added.Record.Quantity,
	}, nil
}
