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

// ShipmentRepository implements repository.ShipmentRepository using PostgreSQL.
type ShipmentRepository struct {
	pool database.DBTX
}

// NewShipmentRepository creates a new PostgreSQL-backed shipment repository.
func NewShipmentRepository(pool database.DBTX) *ShipmentRepository {
	return &ShipmentRepository{pool: pool}
}

const shipmentColumns = `id, number, sales_order_id, warehouse_id, status, carrier, tracking_number, shipping_method, shipping_cost,
	shipped_at, estimated_delivery_date, actual_delivery_date, notes, version, created_at, updated_at`

func scanShipment(row pgx.Row, s *domain.Shipment) error {
	return row.Scan(
		&s.ID,
		&s.Number,
		&s.SalesOrderID,
		&s.WarehouseID,
		&s.Status,
		&s.Carrier,
		&s.TrackingNumber,
		&s.ShippingMethod,
		&s.ShippingCost,
		&s.ShippedAt,
		&s.EstimatedDeliveryDate,
		&s.ActualDeliveryDate,
		&s.Notes,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

// Create inserts a new shipment at version 1.
func (r *ShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	s.Version = 1
	query := `INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Number,
		s.SalesOrderID,
		s.WarehouseID,
		s.Status,
		s.Carrier,
		s.TrackingNumber,
		s.ShippingMethod,
		s.ShippingCost,
		s.ShippedAt,
		s.EstimatedDeliveryDate,
		s.ActualDeliveryDate,
		s.Notes,
		s.Version,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("shipment", "number", s.Number)
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

// GetByID retrieves a shipment by its ID.
func (r *ShipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`

	var s domain.Shipment
	if err := scanShipment(r.pool.QueryRow(ctx, query, id), &s); err != nil {
		return nil, noRows(err, "get shipment", "shipment", id.String())
	}
	return &s, nil
}

// GetByTrackingNumber retrieves a shipment by its carrier tracking number.
func (r *ShipmentRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE tracking_number = $1`

	var s domain.Shipment
	if err := scanShipment(r.pool.QueryRow(ctx, query, trackingNumber), &s); err != nil {
		return nil, noRows(err, "get shipment by tracking number", "shipment", trackingNumber)
	}
	return &s, nil
}

// Update writes the shipment if its stored version equals s.Version.
func (r *ShipmentRepository) Update(ctx context.Context, s *domain.Shipment) error {
	query := `
		UPDATE shipments
		SET status = $3, carrier = $4, tracking_number = $5, shipping_method = $6, shipping_cost = $7, shipped_at = $8,
			estimated_delivery_date = $9, actual_delivery_date = $10, notes = $11, updated_at = $12, version = version + 1
		WHERE id = $1 AND version = $2`

	tag, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Version,
		s.Status,
		s.Carrier,
		s.TrackingNumber,
		s.ShippingMethod,
		s.ShippingCost,
		s.ShippedAt,
		s.EstimatedDeliveryDate,
		s.ActualDeliveryDate,
		s.Notes,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	if err := casResult(tag, "shipment", s.ID.String()); err != nil {
		return err
	}
	s.Version++
	return nil
}

// List returns shipments, newest first.
func (r *ShipmentRepository) List(ctx context.Context, filter domain.ShipmentFilter) ([]domain.Shipment, error) {
	var w where
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if filter.SalesOrderID != nil {
		w.add("sales_order_id = $%d", *filter.SalesOrderID)
	}
	return r.query(ctx, w)
}

// ListOverdue returns pending and in-transit shipments whose estimated
// delivery date is before asOf.
func (r *ShipmentRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Shipment, error) {
	var w where
	w.add("status = ANY($%d)", []string{string(domain.ShipmentPending), string(domain.ShipmentInTransit)})
	w.add("estimated_delivery_date < $%d", asOf)
	return r.query(ctx, w)
}

func (r *ShipmentRepository) query(ctx context.Context, w where) ([]domain.Shipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shipments %s ORDER BY created_at DESC`, shipmentColumns, w.clause())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	shipments := make([]domain.Shipment, 0)
	for rows.Next() {
		var s domain.Shipment
		if err := scanShipment(rows, &s); err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		shipments = append(shipments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipments: %w", err)
	}
	return shipments, nil
}
