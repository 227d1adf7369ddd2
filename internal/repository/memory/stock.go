package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
)

// StockRepository stores stock records and movements.
type StockRepository struct{ s *Store }

func (r *StockRepository) Get(_ context.Context, productID, warehouseID uuid.UUID) (*domain.StockRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.stock[stockKey{productID, warehouseID}]
	if !ok {
		return nil, notFound("stock record", productID)
	}
	return &rec, nil
}

func (r *StockRepository) Create(_ context.Context, rec *domain.StockRecord, mv *domain.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := stockKey{rec.ProductID, rec.WarehouseID}
	if _, ok := r.s.stock[key]; ok {
		return conflict("stock record", rec.ProductID)
	}
	now := r.s.now()
	rec.Version = 1
	rec.CreatedAt, rec.UpdatedAt = now, now
	r.s.stock[key] = *rec
	r.appendMovement(mv)
	return nil
}

func (r *StockRepository) UpdateQuantity(_ context.Context, id uuid.UUID, expectedVersion int64, quantity int, mv *domain.Movement) (*domain.StockRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, rec := range r.s.stock {
		if rec.ID != id {
			continue
		}
		if rec.Version != expectedVersion {
			return nil, conflict("stock record", id)
		}
		rec.Quantity = quantity
		rec.Version++
		rec.UpdatedAt = r.s.now()
		r.s.stock[key] = rec
		r.appendMovement(mv)
		return &rec, nil
	}
	return nil, notFound("stock record", id)
}

func (r *StockRepository) appendMovement(mv *domain.Movement) {
	if mv == nil {
		return
	}
	if mv.CreatedAt.IsZero() {
		mv.CreatedAt = r.s.now()
	}
	r.s.movements = append(r.s.movements, *mv)
}

func (r *StockRepository) List(_ context.Context, filter domain.StockFilter) ([]domain.StockLevel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.StockLevel
	for _, rec := range r.s.stock {
		if filter.ProductID != nil && rec.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && rec.WarehouseID != *filter.WarehouseID {
			continue
		}
		lvl := domain.StockLevel{StockRecord: rec}
		if p, ok := r.s.products[rec.ProductID]; ok {
			lvl.SKU, lvl.ProductName = p.SKU, p.Name
			lvl.ReorderLevel, lvl.MinStockLevel = p.ReorderLevel, p.MinStockLevel
		}
		out = append(out, lvl)
	}
	slices.SortFunc(out, func(a, b domain.StockLevel) int {
		if c := strings.Compare(a.SKU, b.SKU); c != 0 {
			return c
		}
		return strings.Compare(a.WarehouseID.String(), b.WarehouseID.String())
	})
	return out, nil
}

func (r *StockRepository) ListMovements(_ context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Movement
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && !touches(m, *filter.WarehouseID) {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.Reference != "" && m.Reference != filter.Reference {
			continue
		}
		out = append(out, m)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func touches(m domain.Movement, warehouseID uuid.UUID) bool {
	return (m.FromWarehouseID != nil && *m.FromWarehouseID == warehouseID) ||
		(m.ToWarehouseID != nil && *m.ToWarehouseID == warehouseID)
}

func (r *StockRepository) ValuationLines(_ context.Context, filter domain.ValuationFilter) ([]domain.ValuationLine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.ValuationLine
	for _, rec := range r.s.stock {
		if filter.WarehouseID != nil && rec.WarehouseID != *filter.WarehouseID {
			continue
		}
		p, ok := r.s.products[rec.ProductID]
		if !ok || !p.IsActive {
			continue
		}
		if len(filter.CategoryIDs) > 0 && (p.CategoryID == nil || !slices.Contains(filter.CategoryIDs, *p.CategoryID)) {
			continue
		}
		out = append(out, domain.ValuationLine{
			ProductID: rec.ProductID,
			Quantity:  rec.Quantity,
			UnitPrice: p.UnitPrice,
			CostPrice: p.CostPrice,
		})
	}
	return out, nil
}
