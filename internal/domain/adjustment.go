package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdjustmentType describes the intent of a manual stock correction.
type AdjustmentType string

// Adjustment types.
const (
	AdjustmentAdd        AdjustmentType = "ADD"
	AdjustmentRemove     AdjustmentType = "REMOVE"
	AdjustmentCorrection AdjustmentType = "CORRECTION"
)

// IsValid reports whether t is a known adjustment type.
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentAdd, AdjustmentRemove, AdjustmentCorrection:
		return true
	}
	return false
}

// AdjustmentStatus is the approval state of an adjustment.
type AdjustmentStatus string

// Adjustment statuses.
const (
	AdjustmentPending  AdjustmentStatus = "PENDING"
	AdjustmentApproved AdjustmentStatus = "APPROVED"
	AdjustmentRejected AdjustmentStatus = "REJECTED"
)

// AdjustmentTransitions defines which approval decisions are valid.
func AdjustmentTransitions() map[AdjustmentStatus][]AdjustmentStatus {
	return map[AdjustmentStatus][]AdjustmentStatus{
		AdjustmentPending:  {AdjustmentApproved, AdjustmentRejected},
		AdjustmentApproved: {},
		AdjustmentRejected: {},
	}
}

// StockAdjustment is a proposed manual correction. It changes stock only when
// applied, and it can be applied once.
type StockAdjustment struct {
	ID             uuid.UUID        `json:"id"`
	ProductID      uuid.UUID        `json:"product_id"`
	WarehouseID    uuid.UUID        `json:"warehouse_id"`
	QuantityChange int              `json:"quantity_change"`
	QuantityBefore int              `json:"quantity_before"`
	QuantityAfter  int              `json:"quantity_after"`
	Type           AdjustmentType   `json:"type"`
	Reason         string           `json:"reason"`
	Notes          string           `json:"notes,omitempty"`
	Status         AdjustmentStatus `json:"status"`
	Applied        bool             `json:"applied"`
	AppliedAt      *time.Time       `json:"applied_at,omitempty"`
	PerformedBy    *uuid.UUID       `json:"performed_by,omitempty"`
	ApprovedBy     *uuid.UUID       `json:"approved_by,omitempty"`
	Version        int64            `json:"version"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// CanTransitionTo checks whether the adjustment can move to target.
func (a *StockAdjustment) CanTransitionTo(target AdjustmentStatus) bool {
	return canTransition(AdjustmentTransitions(), a.Status, target)
}

// AdjustmentFilter narrows adjustment listings.
type AdjustmentFilter struct {
	Status      AdjustmentStatus
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
}
