package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
)

// ---------------------------------------------------------------------------
// Adjustments
// ---------------------------------------------------------------------------

// AdjustmentRepository stores stock adjustments.
type AdjustmentRepository struct{ s *Store }

func (r *AdjustmentRepository) Create(_ context.Context, a *domain.StockAdjustment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.Version = 1
	r.s.adjustments[a.ID] = *a
	return nil
}

func (r *AdjustmentRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.StockAdjustment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.adjustments[id]
	if !ok {
		return nil, notFound("stock adjustment", id)
	}
	return &a, nil
}

func (r *AdjustmentRepository) Update(_ context.Context, a *domain.StockAdjustment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.adjustments[a.ID]
	if !ok {
		return notFound("stock adjustment", a.ID)
	}
	if err := casVersion("stock adjustment", a.ID, stored.Version, &a.Version); err != nil {
		return err
	}
	r.s.adjustments[a.ID] = *a
	return nil
}

func (r *AdjustmentRepository) List(_ context.Context, filter domain.AdjustmentFilter) ([]domain.StockAdjustment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.StockAdjustment
	for _, a := range r.s.adjustments {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.ProductID != nil && a.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && a.WarehouseID != *filter.WarehouseID {
			continue
		}
		out = append(out, a)
	}
	sortByCreated(out, func(a domain.StockAdjustment) time.Time { return a.CreatedAt })
	return out, nil
}

// ---------------------------------------------------------------------------
// Purchase orders
// ---------------------------------------------------------------------------

// PurchaseOrderRepository stores purchase orders.
type PurchaseOrderRepository struct{ s *Store }

func (r *PurchaseOrderRepository) Create(_ context.Context, o *domain.PurchaseOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.Version = 1
	r.s.purchases[o.ID] = clonePurchaseOrder(*o)
	return nil
}

func (r *PurchaseOrderRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.purchases[id]
	if !ok {
		return nil, notFound("purchase order", id)
	}
	o = clonePurchaseOrder(o)
	return &o, nil
}

func (r *PurchaseOrderRepository) Update(_ context.Context, o *domain.PurchaseOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.purchases[o.ID]
	if !ok {
		return notFound("purchase order", o.ID)
	}
	if err := casVersion("purchase order", o.ID, stored.Version, &o.Version); err != nil {
		return err
	}
	r.s.purchases[o.ID] = clonePurchaseOrder(*o)
	return nil
}

func (r *PurchaseOrderRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.purchases[id]; !ok {
		return notFound("purchase order", id)
	}
	delete(r.s.purchases, id)
	return nil
}

func (r *PurchaseOrderRepository) List(_ context.Context, filter domain.PurchaseOrderFilter) ([]domain.PurchaseOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.PurchaseOrder
	for _, o := range r.s.purchases {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.SupplierID != nil && o.SupplierID != *filter.SupplierID {
			continue
		}
		if filter.WarehouseID != nil && o.WarehouseID != *filter.WarehouseID {
			continue
		}
		out = append(out, clonePurchaseOrder(o))
	}
	sortByCreated(out, func(o domain.PurchaseOrder) time.Time { return o.CreatedAt })
	return out, nil
}

// ---------------------------------------------------------------------------
// Sales orders
// ---------------------------------------------------------------------------

// SalesOrderRepository stores sales orders.
type SalesOrderRepository struct{ s *Store }

func (r *SalesOrderRepository) Create(_ context.Context, o *domain.SalesOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.Version = 1
	r.s.sales[o.ID] = cloneSalesOrder(*o)
	return nil
}

func (r *SalesOrderRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.SalesOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.sales[id]
	if !ok {
		return nil, notFound("sales order", id)
	}
	o = cloneSalesOrder(o)
	return &o, nil
}

func (r *SalesOrderRepository) Update(_ context.Context, o *domain.SalesOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.sales[o.ID]
	if !ok {
		return notFound("sales order", o.ID)
	}
	if err := casVersion("sales order", o.ID, stored.Version, &o.Version); err != nil {
		return err
	}
	r.s.sales[o.ID] = cloneSalesOrder(*o)
	return nil
}

func (r *SalesOrderRepository) List(_ context.Context, filter domain.SalesOrderFilter) ([]domain.SalesOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.SalesOrder
	for _, o := range r.s.sales {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.WarehouseID != nil && o.WarehouseID != *filter.WarehouseID {
			continue
		}
		out = append(out, cloneSalesOrder(o))
	}
	sortByCreated(out, func(o domain.SalesOrder) time.Time { return o.CreatedAt })
	return out, nil
}

// ---------------------------------------------------------------------------
// Shipments
// ---------------------------------------------------------------------------

// ShipmentRepository stores shipments.
type ShipmentRepository struct{ s *Store }

func (r *ShipmentRepository) Create(_ context.Context, sh *domain.Shipment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh.Version = 1
	r.s.shipments[sh.ID] = *sh
	return nil
}

func (r *ShipmentRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Shipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sh, ok := r.s.shipments[id]
	if !ok {
		return nil, notFound("shipment", id)
	}
	return &sh, nil
}

func (r *ShipmentRepository) GetByTrackingNumber(_ context.Context, trackingNumber string) (*domain.Shipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sh := range r.s.shipments {
		if trackingNumber != "" && sh.TrackingNumber == trackingNumber {
			return &sh, nil
		}
	}
	return nil, notFoundKey("shipment", trackingNumber)
}

func (r *ShipmentRepository) Update(_ context.Context, sh *domain.Shipment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.shipments[sh.ID]
	if !ok {
		return notFound("shipment", sh.ID)
	}
	if err := casVersion("shipment", sh.ID, stored.Version, &sh.Version); err != nil {
		return err
	}
	r.s.shipments[sh.ID] = *sh
	return nil
}

func (r *ShipmentRepository) List(_ context.Context, filter domain.ShipmentFilter) ([]domain.Shipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Shipment
	for _, sh := range r.s.shipments {
		if filter.Status != "" && sh.Status != filter.Status {
			continue
		}
		if filter.SalesOrderID != nil && sh.SalesOrderID != *filter.SalesOrderID {
			continue
		}
		out = append(out, sh)
	}
	sortByCreated(out, func(sh domain.Shipment) time.Time { return sh.CreatedAt })
	return out, nil
}

func (r *ShipmentRepository) ListOverdue(_ context.Context, asOf time.Time) ([]domain.Shipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Shipment
	for _, sh := range r.s.shipments {
		if sh.IsOverdue(asOf) {
			out = append(out, sh)
		}
	}
	sortByCreated(out, func(sh domain.Shipment) time.Time { return sh.CreatedAt })
	return out, nil
}
