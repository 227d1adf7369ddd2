package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/repository"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
	"github.com/utafrali/InventoryGo/pkg/retry"
)

// CreateShipmentInput ships a FULFILLED sales order.
type CreateShipmentInput struct {
	SalesOrderID          uuid.UUID
	Carrier               string
	TrackingNumber        string
	ShippingMethod        string
	ShippingCost          decimal.Decimal
	EstimatedDeliveryDate *time.Time
	Notes                 string
}

// ShipmentService runs the shipment state machine and keeps the shipped sales
// order in step with it.
type ShipmentService struct {
	shipments   repository.ShipmentRepository
	salesOrders *SalesOrderService
	numbers     *NumberGenerator
	policy      retry.Policy
	logger      *slog.Logger
	now         Clock
}

// NewShipmentService creates a shipment service.
func NewShipmentService(
	shipments repository.ShipmentRepository,
	salesOrders *SalesOrderService,
	numbers *NumberGenerator,
	policy retry.Policy,
	logger *slog.Logger,
) *ShipmentService {
	return &ShipmentService{
		shipments:   shipments,
		salesOrders: salesOrders,
		numbers:     numbers,
		policy:      policy,
		logger:      logger,
		now:         utcNow,
	}
}

// Create records a PENDING shipment for a FULFILLED sales order and advances
// the order to SHIPPED.
func (s *ShipmentService) Create(ctx context.Context, in CreateShipmentInput) (*domain.Shipment, error) {
	if err := nonNegative("shipping_cost", in.ShippingCost); err != nil {
		return nil, err
	}
	so, err := s.salesOrders.Get(ctx, in.SalesOrderID)
	if err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}
	if so.Status != domain.SalesOrderFulfilled {
		return nil, apperrors.SalesOrderNotFulfilled(so.ID.String(), string(so.Status))
	}

	number, err := s.numbers.Next(ctx, PrefixShipment)
	if err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}

	now := s.now()
	sh := &domain.Shipment{
		ID:                    uuid.New(),
		Number:                number,
		SalesOrderID:          so.ID,
		WarehouseID:           so.WarehouseID,
		Status:                domain.ShipmentPending,
		Carrier:               in.Carrier,
		TrackingNumber:        strings.TrimSpace(in.TrackingNumber),
		ShippingMethod:        in.ShippingMethod,
		ShippingCost:          in.ShippingCost,
		ShippedAt:             &now,
		EstimatedDeliveryDate: in.EstimatedDeliveryDate,
		Notes:                 in.Notes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.shipments.Create(ctx, sh); err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}

	err = retry.Do(ctx, s.policy, "ship sales order", func(ctx context.Context) error {
		_, err := s.salesOrders.Ship(ctx, so.ID)
		return err
	})
	if err != nil {
		cause := fmt.Errorf("create shipment: %w", err)
		return nil, compensate(ctx, s.logger, "create shipment", cause, func(ctx context.Context) error {
			return s.terminate(ctx, sh.ID, domain.ShipmentFailed, "sales order could not be shipped")
		})
	}

	s.logger.InfoContext(ctx, "shipment created",
		slog.String("shipment_id", sh.ID.String()),
		slog.String("number", sh.Number),
		slog.String("sales_order_id", so.ID.String()),
	)
	return sh, nil
}

// terminate forces a shipment into a terminal status with a note.
func (s *ShipmentService) terminate(ctx context.Context, id uuid.UUID, status domain.ShipmentStatus, note string) error {
	return retry.Do(ctx, s.policy, "terminate shipment", func(ctx context.Context) error {
		sh, err := s.shipments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		sh.Status = status
		sh.Notes = appendLine(sh.Notes, note)
		sh.UpdatedAt = s.now()
		return s.shipments.Update(ctx, sh)
	})
}

// UpdateStatus moves a non-terminal shipment to IN_TRANSIT, FAILED or
// RETURNED. Delivery goes through Deliver.
func (s *ShipmentService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ShipmentStatus, note string) (*domain.Shipment, error) {
	sh, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update shipment status: %w", err)
	}
	if sh.IsTerminal() {
		return nil, apperrors.ShipmentAlreadyTerminated(sh.ID.String(), string(sh.Status))
	}
	if status == domain.ShipmentDelivered || !sh.CanTransitionTo(status) {
		return nil, apperrors.InvalidTransition("shipment", string(sh.Status), string(status))
	}

	sh.Status = status
	if note != "" {
		sh.Notes = appendLine(sh.Notes, fmt.Sprintf("[%s] %s", status, note))
	}
	return s.save(ctx, sh, "update shipment status")
}

// MarkInTransit hands a PENDING shipment to the carrier.
func (s *ShipmentService) MarkInTransit(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	return s.UpdateStatus(ctx, id, domain.ShipmentInTransit, "")
}

// MarkFailed records a failed delivery attempt.
func (s *ShipmentService) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*domain.Shipment, error) {
	return s.UpdateStatus(ctx, id, domain.ShipmentFailed, reason)
}

// MarkReturned records a shipment returned to sender.
func (s *ShipmentService) MarkReturned(ctx context.Context, id uuid.UUID, reason string) (*domain.Shipment, error) {
	return s.UpdateStatus(ctx, id, domain.ShipmentReturned, reason)
}

// Deliver marks a PENDING or IN_TRANSIT shipment DELIVERED and advances its
// sales order from SHIPPED to DELIVERED. A failure to advance the order is
// logged; the delivery itself stands.
func (s *ShipmentService) Deliver(ctx context.Context, id uuid.UUID, deliveredAt *time.Time) (*domain.Shipment, error) {
	sh, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deliver shipment: %w", err)
	}
	if sh.Status != domain.ShipmentPending && sh.Status != domain.ShipmentInTransit {
		return nil, apperrors.ShipmentNotEligibleForDelivery(sh.ID.String(), string(sh.Status))
	}

	at := s.now()
	if deliveredAt != nil {
		at = deliveredAt.UTC()
	}
	sh.Status = domain.ShipmentDelivered
	sh.ActualDeliveryDate = &at
	saved, err := s.save(ctx, sh, "deliver shipment")
	if err != nil {
		return nil, err
	}

	err = retry.Do(ctx, s.policy, "deliver sales order", func(ctx context.Context) error {
		so, err := s.salesOrders.Get(ctx, sh.SalesOrderID)
		if err != nil {
			return err
		}
		if so.Status != domain.SalesOrderShipped {
			return nil
		}
		_, err = s.salesOrders.Deliver(ctx, so.ID)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to advance sales order after delivery",
			slog.String("shipment_id", sh.ID.String()),
			slog.String("sales_order_id", sh.SalesOrderID.String()),
			slog.String("error", err.Error()),
		)
	}
	return saved, nil
}

// UpdateTracking changes the carrier and tracking number of a live shipment.
func (s *ShipmentService) UpdateTracking(ctx context.Context, id uuid.UUID, carrier, trackingNumber string) (*domain.Shipment, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, apperrors.InvalidInput("tracking_number is required")
	}
	sh, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update shipment tracking: %w", err)
	}
	if sh.IsTerminal() {
		return nil, apperrors.ShipmentAlreadyTerminated(sh.ID.String(), string(sh.Status))
	}
	if carrier != "" {
		sh.Carrier = carrier
	}
	sh.TrackingNumber = trackingNumber
	return s.save(ctx, sh, "update shipment tracking")
}

// Get returns one shipment.
func (s *ShipmentService) Get(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	sh, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return sh, nil
}

// GetByTrackingNumber looks a shipment up by its carrier tracking number.
func (s *ShipmentService) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Shipment, error) {
	sh, err := s.shipments.GetByTrackingNumber(ctx, strings.TrimSpace(trackingNumber))
	if err != nil {
		return nil, fmt.Errorf("get shipment by tracking number: %w", err)
	}
	return sh, nil
}

// List returns shipments matching filter, newest first.
func (s *ShipmentService) List(ctx context.Context, filter domain.ShipmentFilter) ([]domain.Shipment, error) {
	out, err := s.shipments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	return out, nil
}

// ListPending returns shipments not yet handed to a carrier.
func (s *ShipmentService) ListPending(ctx context.Context) ([]domain.Shipment, error) {
	return s.List(ctx, domain.ShipmentFilter{Status: domain.ShipmentPending})
}

// ListOverdue returns live shipments whose estimated delivery is before asOf.
func (s *ShipmentService) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Shipment, error) {
	out, err := s.shipments.ListOverdue(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("list overdue shipments: %w", err)
	}
	return out, nil
}

func (s *ShipmentService) save(ctx context.Context, sh *domain.Shipment, op string) (*domain.Shipment, error) {
	sh.UpdatedAt = s.now()
	if err := s.shipments.Update(ctx, sh); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.InfoContext(ctx, op,
		slog.String("shipment_id", sh.ID.String()),
		slog.String("status", string(sh.Status)),
	)
	return sh, nil
}

func appendLine(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
