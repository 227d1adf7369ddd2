package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// ProductRepository stores products.
type ProductRepository struct{ s *Store }

func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.products {
		if strings.EqualFold(existing.SKU, p.SKU) {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	return &p, nil
}

func (r *ProductRepository) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.products {
		if strings.EqualFold(p.SKU, sku) {
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("product", sku)
}

func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return notFound("product", p.ID)
	}
	for _, existing := range r.s.products {
		if existing.ID != p.ID && strings.EqualFold(existing.SKU, p.SKU) {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if len(filter.CategoryIDs) > 0 && (p.CategoryID == nil || !slices.Contains(filter.CategoryIDs, *p.CategoryID)) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int { return strings.Compare(a.SKU, b.SKU) })
	return out, nil
}

func (r *ProductRepository) CountByCategories(_ context.Context, categoryIDs []uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, p := range r.s.products {
		if p.CategoryID != nil && slices.Contains(categoryIDs, *p.CategoryID) {
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Warehouses
// ---------------------------------------------------------------------------

// WarehouseRepository stores warehouses.
type WarehouseRepository struct{ s *Store }

func (r *WarehouseRepository) Create(_ context.Context, w *domain.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.warehouses {
		if strings.EqualFold(existing.Code, w.Code) {
			return apperrors.AlreadyExists("warehouse", "code", w.Code)
		}
	}
	r.s.warehouses[w.ID] = *w
	return nil
}

func (r *WarehouseRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, notFound("warehouse", id)
	}
	return &w, nil
}

func (r *WarehouseRepository) GetByCode(_ context.Context, code string) (*domain.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.warehouses {
		if strings.EqualFold(w.Code, code) {
			return &w, nil
		}
	}
	return nil, apperrors.NotFound("warehouse", code)
}

func (r *WarehouseRepository) List(_ context.Context) ([]domain.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Warehouse, 0, len(r.s.warehouses))
	for _, w := range r.s.warehouses {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b domain.Warehouse) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Suppliers
// ---------------------------------------------------------------------------

// SupplierRepository stores suppliers.
type SupplierRepository struct{ s *Store }

// taken reports a code or email clash with any supplier other than sup.
func (r *SupplierRepository) taken(sup *domain.Supplier) error {
	for _, existing := range r.s.suppliers {
		if existing.ID == sup.ID {
			continue
		}
		if strings.EqualFold(existing.Code, sup.Code) {
			return apperrors.AlreadyExists("supplier", "code", sup.Code)
		}
		if strings.EqualFold(existing.Email, sup.Email) {
			return apperrors.AlreadyExists("supplier", "email", sup.Email)
		}
	}
	return nil
}

func (r *SupplierRepository) Create(_ context.Context, sup *domain.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.taken(sup); err != nil {
		return err
	}
	r.s.suppliers[sup.ID] = *sup
	return nil
}

func (r *SupplierRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Supplier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sup, ok := r.s.suppliers[id]
	if !ok {
		return nil, notFound("supplier", id)
	}
	return &sup, nil
}

func (r *SupplierRepository) GetByCode(_ context.Context, code string) (*domain.Supplier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sup := range r.s.suppliers {
		if strings.EqualFold(sup.Code, code) {
			return &sup, nil
		}
	}
	return nil, notFoundKey("supplier", code)
}

func (r *SupplierRepository) Update(_ context.Context, sup *domain.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.suppliers[sup.ID]; !ok {
		return notFound("supplier", sup.ID)
	}
	if err := r.taken(sup); err != nil {
		return err
	}
	r.s.suppliers[sup.ID] = *sup
	return nil
}

func (r *SupplierRepository) List(_ context.Context, filter domain.SupplierFilter) ([]domain.Supplier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.Supplier, 0, len(r.s.suppliers))
	for _, sup := range r.s.suppliers {
		if filter.ActiveOnly && !sup.IsActive {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(sup.Code), term) &&
			!strings.Contains(strings.ToLower(sup.Name), term) &&
			!strings.Contains(strings.ToLower(sup.Email), term) {
			continue
		}
		out = append(out, sup)
	}
	slices.SortFunc(out, func(a, b domain.Supplier) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

func (r *SupplierRepository) CountActive(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, sup := range r.s.suppliers {
		if sup.IsActive {
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// CategoryRepository stores categories.
type CategoryRepository struct{ s *Store }

func (r *CategoryRepository) Create(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.categories {
		if strings.EqualFold(existing.Code, c.Code) {
			return apperrors.AlreadyExists("category", "code", c.Code)
		}
	}
	r.s.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, notFound("category", id)
	}
	return &c, nil
}

func (r *CategoryRepository) Update(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[c.ID]; !ok {
		return notFound("category", c.ID)
	}
	r.s.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return notFound("category", id)
	}
	delete(r.s.categories, id)
	return nil
}

func (r *CategoryRepository) List(_ context.Context) ([]domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Category) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}
