package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentStatus is the delivery state of a shipment.
type ShipmentStatus string

// Shipment statuses.
const (
	ShipmentPending   ShipmentStatus = "PENDING"
	ShipmentInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
	ShipmentFailed    ShipmentStatus = "FAILED"
	ShipmentReturned  ShipmentStatus = "RETURNED"
)

// ShipmentTransitions defines which status transitions are valid.
func ShipmentTransitions() map[ShipmentStatus][]ShipmentStatus {
	return map[ShipmentStatus][]ShipmentStatus{
		ShipmentPending:   {ShipmentInTransit, ShipmentDelivered, ShipmentFailed, ShipmentReturned},
		ShipmentInTransit: {ShipmentDelivered, ShipmentFailed, ShipmentReturned},
		ShipmentDelivered: {},
		ShipmentFailed:    {},
		ShipmentReturned:  {},
	}
}

// Shipment tracks the physical delivery of a fulfilled sales order.
type Shipment struct {
	ID                    uuid.UUID       `json:"id"`
	Number                string          `json:"number"`
	SalesOrderID          uuid.UUID       `json:"sales_order_id"`
	WarehouseID           uuid.UUID       `json:"warehouse_id"`
	Status                ShipmentStatus  `json:"status"`
	Carrier               string          `json:"carrier,omitempty"`
	TrackingNumber        string          `json:"tracking_number,omitempty"`
	ShippingMethod        string          `json:"shipping_method,omitempty"`
	ShippingCost          decimal.Decimal `json:"shipping_cost"`
	ShippedAt             *time.Time      `json:"shipped_at,omitempty"`
	EstimatedDeliveryDate *time.Time      `json:"estimated_delivery_date,omitempty"`
	ActualDeliveryDate    *time.Time      `json:"actual_delivery_date,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	Version               int64           `json:"version"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// IsTerminal reports whether the shipment can no longer change status.
func (s *Shipment) IsTerminal() bool {
	return isTerminal(ShipmentTransitions(), s.Status)
}

// CanTransitionTo checks whether the shipment can move to target.
func (s *Shipment) CanTransitionTo(target ShipmentStatus) bool {
	return canTransition(ShipmentTransitions(), s.Status, target)
}

// IsOverdue reports whether an undelivered shipment is past its estimate.
func (s *Shipment) IsOverdue(asOf time.Time) bool {
	if s.IsTerminal() || s.EstimatedDeliveryDate == nil {
		return false
	}
	return s.EstimatedDeliveryDate.Before(asOf)
}

// ShipmentFilter narrows shipment listings.
type ShipmentFilter struct {
	Status       ShipmentStatus
	SalesOrderID *uuid.UUID
}
