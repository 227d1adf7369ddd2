package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a quantity change in the ledger.
type MovementType string

// Movement types.
const (
	MovementTransfer   MovementType = "TRANSFER"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementReceipt    MovementType = "RECEIPT"
	MovementShipment   MovementType = "SHIPMENT"
)

// ValidMovementTypes returns every movement type.
func ValidMovementTypes() []MovementType {
	return []MovementType{MovementTransfer, MovementAdjustment, MovementReceipt, MovementShipment}
}

// IsValid reports whether t is a known movement type.
func (t MovementType) IsValid() bool {
	for _, v := range ValidMovementTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// StockRecord is the current quantity of one product at one warehouse.
// Version increases on every write and guards optimistic updates.
type StockRecord struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	WarehouseID  uuid.UUID `json:"warehouse_id"`
	Quantity     int       `json:"quantity"`
	Version      int64     `json:"version"`
	LocationCode string    `json:"location_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Movement is an immutable log entry of a quantity change.
type Movement struct {
	ID              uuid.UUID    `json:"id"`
	ProductID       uuid.UUID    `json:"product_id"`
	FromWarehouseID *uuid.UUID   `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   *uuid.UUID   `json:"to_warehouse_id,omitempty"`
	Quantity        int          `json:"quantity"`
	Type            MovementType `json:"type"`
	Reference       string       `json:"reference,omitempty"`
	Reason          string       `json:"reason,omitempty"`
	PerformedBy     *uuid.UUID   `json:"performed_by,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// HasValidEnds reports whether the warehouse ends match the movement type:
// TRANSFER has both, RECEIPT only To, SHIPMENT only From, ADJUSTMENT exactly
// one.
func (m *Movement) HasValidEnds() bool {
	from, to := m.FromWarehouseID != nil, m.ToWarehouseID != nil
	switch m.Type {
	case MovementTransfer:
		return from && to && *m.FromWarehouseID != *m.ToWarehouseID
	case MovementReceipt:
		return !from && to
	case MovementShipment:
		return from && !to
	case MovementAdjustment:
		return from != to
	default:
		return false
	}
}

// StockFilter narrows stock listings.
type StockFilter struct {
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
}

// MovementFilter narrows movement history.
type MovementFilter struct {
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
	Type        MovementType
	Reference   string
	Limit       int
}

// StockLevel is a stock record joined with its product's thresholds.
type StockLevel struct {
	StockRecord
	SKU           string `json:"sku"`
	ProductName   string `json:"product_name"`
	ReorderLevel  int    `json:"reorder_level"`
	MinStockLevel int    `json:"min_stock_level"`
	Status        string `json:"status"`
}

// ValuationLine is the raw material for a valuation: one stock record with its
// product's prices.
type ValuationLine struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	CostPrice decimal.Decimal
}

// ValuationFilter narrows a valuation. CategoryIDs is the already expanded
// set of categories whose products count; empty means every category.
type ValuationFilter struct {
	WarehouseID *uuid.UUID
	CategoryIDs []uuid.UUID
}

// Valuation summarises the monetary value of stock on hand.
type Valuation struct {
	WarehouseID     *uuid.UUID      `json:"warehouse_id,omitempty"`
	CategoryID      *uuid.UUID      `json:"category_id,omitempty"`
	TotalProducts   int             `json:"total_products"`
	TotalUnits      int             `json:"total_units"`
	CostValue       decimal.Decimal `json:"cost_value"`
	RetailValue     decimal.Decimal `json:"retail_value"`
	PotentialProfit decimal.Decimal `json:"potential_profit"`
}

// ValueStock folds lines into a Valuation. A product counts once no matter how
// many warehouses hold it.
func ValueStock(warehouseID *uuid.UUID, lines []ValuationLine) Valuation {
	v := Valuation{
		WarehouseID: warehouseID,
		CostValue:   decimal.Zero,
		RetailValue: decimal.Zero,
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		seen[l.ProductID] = struct{}{}
		qty := decimal.NewFromInt(int64(l.Quantity))
		v.TotalUnits += l.Quantity
		v.CostValue = v.CostValue.Add(l.CostPrice.Mul(qty))
		v.RetailValue = v.RetailValue.Add(l.UnitPrice.Mul(qty))
	}
	v.TotalProducts = len(seen)
	v.PotentialProfit = v.RetailValue.Sub(v.CostValue)
	return v
}
