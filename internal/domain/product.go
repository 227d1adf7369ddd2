package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock status levels derived from a product's thresholds.
const (
	StockStatusCritical = "CRITICAL"
	StockStatusLow      = "LOW"
	StockStatusNormal   = "NORMAL"
)

// Product is a catalog entry whose stock is tracked per warehouse.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	ReorderLevel  int             `json:"reorder_level"`
	MinStockLevel int             `json:"min_stock_level"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsLowStock reports whether qty is at or below the reorder level.
func (p *Product) IsLowStock(qty int) bool {
	return qty <= p.ReorderLevel
}

// IsCritical reports whether qty is at or below the minimum stock level.
func (p *Product) IsCritical(qty int) bool {
	return qty <= p.MinStockLevel
}

// StockStatus classifies qty against the product's thresholds. Quantities
// strictly below the minimum are CRITICAL.
func (p *Product) StockStatus(qty int) string {
	switch {
	case qty < p.MinStockLevel:
		return StockStatusCritical
	case qty <= p.ReorderLevel:
		return StockStatusLow
	default:
		return StockStatusNormal
	}
}

// Warehouse is a physical location holding stock.
type Warehouse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Supplier ratings range from 1 (poor) to 5 (excellent).
const (
	MinSupplierRating = 1
	MaxSupplierRating = 5
)

// Supplier is a vendor purchase orders are placed with. Code and email are
// unique case-insensitively.
type Supplier struct {
	ID            uuid.UUID `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	Country       string    `json:"country,omitempty"`
	PaymentTerms  string    `json:"payment_terms,omitempty"`
	Rating        *int      `json:"rating,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SupplierFilter narrows supplier listings. Search matches code, name or
// email as a case-insensitive substring.
type SupplierFilter struct {
	ActiveOnly bool
	Search     string
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryIDs []uuid.UUID
	ActiveOnly  bool
}
