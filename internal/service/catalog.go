package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/repository"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// ProductInput carries the writable fields of a product.
type ProductInput struct {
	SKU           string
	Name          string
	Description   string
	CategoryID    *uuid.UUID
	UnitPrice     decimal.Decimal
	CostPrice     decimal.Decimal
	ReorderLevel  int
	MinStockLevel int
	IsActive      bool
}

// WarehouseInput carries the writable fields of a warehouse.
type WarehouseInput struct {
	Code    string
	Name    string
	Address string
}

// SupplierInput carries the writable fields of a supplier. A nil IsActive
// keeps the current state on update and means active on create.
type SupplierInput struct {
	Code          string
	Name          string
	ContactPerson string
	Email         string
	Phone         string
	Address       string
	City          string
	Country       string
	PaymentTerms  string
	Rating        *int
	IsActive      *bool
}

// CatalogService manages the products, warehouses and suppliers the ledger
// and the order flows refer to.
type CatalogService struct {
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	categories repository.CategoryRepository
	suppliers  repository.SupplierRepository
	logger     *slog.Logger
	now        Clock
}

// NewCatalogService creates a catalog service.
func NewCatalogService(
	products repository.ProductRepository,
	warehouses repository.WarehouseRepository,
	categories repository.CategoryRepository,
	suppliers repository.SupplierRepository,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		warehouses: warehouses,
		categories: categories,
		suppliers:  suppliers,
		logger:     logger,
		now:        utcNow,
	}
}

func (s *CatalogService) validateProduct(ctx context.Context, in *ProductInput) error {
	in.SKU = strings.TrimSpace(in.SKU)
	if in.SKU == "" {
		return apperrors.InvalidInput("sku is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.InvalidInput("name is required")
	}
	if in.UnitPrice.Sign() <= 0 {
		return apperrors.InvalidAmount("unit_price", in.UnitPrice)
	}
	if in.CostPrice.Sign() < 0 {
		return apperrors.InvalidAmount("cost_price", in.CostPrice)
	}
	if in.ReorderLevel < 0 || in.MinStockLevel < 0 {
		return apperrors.InvalidInput("stock levels must not be negative")
	}
	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

// CreateProduct adds a product with a unique SKU.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := s.validateProduct(ctx, &in); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	now := s.now()
	p := &domain.Product{
		ID:            uuid.New(),
		SKU:           in.SKU,
		Name:          in.Name,
		Description:   in.Description,
		CategoryID:    in.CategoryID,
		UnitPrice:     in.UnitPrice,
		CostPrice:     in.CostPrice,
		ReorderLevel:  in.ReorderLevel,
		MinStockLevel: in.MinStockLevel,
		IsActive:      in.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID.String()),
		slog.String("sku", p.SKU),
	)
	return p, nil
}

// UpdateProduct replaces the writable fields of a product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	if err := s.validateProduct(ctx, &in); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	p.SKU = in.SKU
	p.Name = in.Name
	p.Description = in.Description
	p.CategoryID = in.CategoryID
	p.UnitPrice = in.UnitPrice
	p.CostPrice = in.CostPrice
	p.ReorderLevel = in.ReorderLevel
	p.MinStockLevel = in.MinStockLevel
	p.IsActive = in.IsActive
	p.UpdatedAt = s.now()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", p.ID.String()))
	return p, nil
}

// GetProduct returns one product.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetProductBySKU looks a product up by SKU, ignoring case.
func (s *CatalogService) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	p, err := s.products.GetBySKU(ctx, strings.TrimSpace(sku))
	if err != nil {
		return nil, fmt.Errorf("get product by sku: %w", err)
	}
	return p, nil
}

// ListProducts returns products matching filter ordered by SKU.
func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	out, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// CreateWarehouse adds a warehouse with a unique code.
func (s *CatalogService) CreateWarehouse(ctx context.Context, in WarehouseInput) (*domain.Warehouse, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return nil, apperrors.InvalidInput("code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	now := s.now()
	w := &domain.Warehouse{
		ID:        uuid.New(),
		Code:      code,
		Name:      in.Name,
		Address:   in.Address,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.warehouses.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create warehouse: %w", err)
	}
	s.logger.InfoContext(ctx, "warehouse created",
		slog.String("warehouse_id", w.ID.String()),
		slog.String("code", w.Code),
	)
	return w, nil
}

// GetWarehouse returns one warehouse.
func (s *CatalogService) GetWarehouse(ctx context.Context, id uuid.UUID) (*domain.Warehouse, error) {
	w, err := s.warehouses.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return w, nil
}

// ListWarehouses returns every warehouse ordered by code.
func (s *CatalogService) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	out, err := s.warehouses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	return out, nil
}

func validateSupplier(in *SupplierInput) error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Email = strings.TrimSpace(in.Email)
	if in.Code == "" {
		return apperrors.InvalidInput("code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.InvalidInput("name is required")
	}
	if in.Email == "" {
		return apperrors.InvalidInput("email is required")
	}
	if in.Rating != nil && (*in.Rating < domain.MinSupplierRating || *in.Rating > domain.MaxSupplierRating) {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinSupplierRating, domain.MaxSupplierRating))
	}
	return nil
}

// CreateSupplier adds a supplier with a unique code and email.
func (s *CatalogService) CreateSupplier(ctx context.Context, in SupplierInput) (*domain.Supplier, error) {
	if err := validateSupplier(&in); err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	now := s.now()
	sup := &domain.Supplier{
		ID:            uuid.New(),
		Code:          in.Code,
		Name:          in.Name,
		ContactPerson: in.ContactPerson,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		City:          in.City,
		Country:       in.Country,
		PaymentTerms:  in.PaymentTerms,
		Rating:        in.Rating,
		IsActive:      in.IsActive == nil || *in.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.suppliers.Create(ctx, sup); err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	s.logger.InfoContext(ctx, "supplier created",
		slog.String("supplier_id", sup.ID.String()),
		slog.String("code", sup.Code),
	)
	return sup, nil
}

// UpdateSupplier replaces the writable fields of a supplier.
func (s *CatalogService) UpdateSupplier(ctx context.Context, id uuid.UUID, in SupplierInput) (*domain.Supplier, error) {
	if err := validateSupplier(&in); err != nil {
		return nil, fmt.Errorf("update supplier: %w", err)
	}
	sup, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update supplier: %w", err)
	}
	sup.Code = in.Code
	sup.Name = in.Name
	sup.ContactPerson = in.ContactPerson
	sup.Email = in.Email
	sup.Phone = in.Phone
	sup.Address = in.Address
	sup.City = in.City
	sup.Country = in.Country
	sup.PaymentTerms = in.PaymentTerms
	sup.Rating = in.Rating
	if in.IsActive != nil {
		sup.IsActive = *in.IsActive
	}
	sup.UpdatedAt = s.now()
	if err := s.suppliers.Update(ctx, sup); err != nil {
		return nil, fmt.Errorf("update supplier: %w", err)
	}
	s.logger.InfoContext(ctx, "supplier updated",
		slog.String("supplier_id", sup.ID.String()),
		slog.Bool("is_active", sup.IsActive),
	)
	return sup, nil
}

// GetSupplier returns one supplier.
func (s *CatalogService) GetSupplier(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	sup, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return sup, nil
}

// GetSupplierByCode looks a supplier up by code, ignoring case.
func (s *CatalogService) GetSupplierByCode(ctx context.Context, code string) (*domain.Supplier, error) {
	sup, err := s.suppliers.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("get supplier by code: %w", err)
	}
	return sup, nil
}

// ListSuppliers returns suppliers matching filter ordered by code.
func (s *CatalogService) ListSuppliers(ctx context.Context, filter domain.SupplierFilter) ([]domain.Supplier, error) {
	out, err := s.suppliers.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return out, nil
}

// CountActiveSuppliers returns how many suppliers are active.
func (s *CatalogService) CountActiveSuppliers(ctx context.Context) (int, error) {
	n, err := s.suppliers.CountActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("count active suppliers: %w", err)
	}
	return n, nil
}
