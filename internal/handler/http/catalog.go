package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/service"
	"github.com/utafrali/InventoryGo/pkg/httputil"
)

// CatalogHandler handles products, warehouses, suppliers and categories.
type CatalogHandler struct {
	base
	catalog    *service.CatalogService
	categories *service.CategoryService
}

// NewCatalogHandler creates a catalog HTTP handler.
func NewCatalogHandler(svc Services, b base) *CatalogHandler {
	return &CatalogHandler{
		base:       b,
		catalog:    svc.Catalog,
		categories: svc.Categories,
	}
}

// --- Request DTOs ---

// ProductRequest carries the writable fields of a product. IsActive defaults
// to true.
type ProductRequest struct {
	SKU           string          `json:"sku" validate:"required,max=50"`
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description" validate:"max=2000"`
	CategoryID    *uuid.UUID      `json:"category_id"`
	UnitPrice     decimal.Decimal `json:"unit_price" validate:"gt=0"`
	CostPrice     decimal.Decimal `json:"cost_price" validate:"gte=0"`
	ReorderLevel  int             `json:"reorder_level" validate:"gte=0"`
	MinStockLevel int             `json:"min_stock_level" validate:"gte=0"`
	IsActive      *bool           `json:"is_active"`
}

func (req ProductRequest) input() service.ProductInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return service.ProductInput{
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		UnitPrice:     req.UnitPrice,
		CostPrice:     req.CostPrice,
		ReorderLevel:  req.ReorderLevel,
		MinStockLevel: req.MinStockLevel,
		IsActive:      active,
	}
}

// WarehouseRequest creates a warehouse.
type WarehouseRequest struct {
	Code    string `json:"code" validate:"required,max=20"`
	Name    string `json:"name" validate:"required,max=255"`
	Address string `json:"address" validate:"max=1000"`
}

// SupplierRequest carries the writable fields of a supplier. On update a
// missing is_active keeps the current state.
type SupplierRequest struct {
	Code          string `json:"code" validate:"required,max=50"`
	Name          string `json:"name" validate:"required,max=255"`
	ContactPerson string `json:"contact_person" validate:"max=100"`
	Email         string `json:"email" validate:"required,email,max=255"`
	Phone         string `json:"phone" validate:"max=50"`
	Address       string `json:"address" validate:"max=1000"`
	City          string `json:"city" validate:"max=100"`
	Country       string `json:"country" validate:"max=100"`
	PaymentTerms  string `json:"payment_terms" validate:"max=100"`
	Rating        *int   `json:"rating" validate:"omitempty,min=1,max=5"`
	IsActive      *bool  `json:"is_active"`
}

func (req SupplierRequest) input() service.SupplierInput {
	return service.SupplierInput{
		Code:          req.Code,
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		Country:       req.Country,
		PaymentTerms:  req.PaymentTerms,
		Rating:        req.Rating,
		IsActive:      req.IsActive,
	}
}

// SupplierCountResponse reports how many suppliers are active.
type SupplierCountResponse struct {
	Active int `json:"active"`
}

// CategoryRequest carries the writable fields of a category.
type CategoryRequest struct {
	Code        string     `json:"code" validate:"required,max=50"`
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description" validate:"max=2000"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

func (req CategoryRequest) input() service.CategoryInput {
	return service.CategoryInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	}
}

// CategoryNode is one category with its subtree.
type CategoryNode struct {
	domain.Category
	Children []CategoryNode `json:"children"`
}

func categoryNodes(t *domain.CategoryTree, ids []uuid.UUID) []CategoryNode {
	nodes := make([]CategoryNode, 0, len(ids))
	for _, id := range ids {
		c, ok := t.Get(id)
		if !ok {
			continue
		}
		nodes = append(nodes, CategoryNode{Category: c, Children: categoryNodes(t, t.Children(id))})
	}
	return nodes
}

// --- Products ---

// CreateProduct handles POST /api/v1/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), req.input())
	h.reply(w, r, http.StatusCreated, p, err)
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := queryID(w, r, "category_id")
	if !ok {
		return
	}
	activeOnly, ok := queryBool(w, r, "active")
	if !ok {
		return
	}
	filter := domain.ProductFilter{ActiveOnly: activeOnly}
	if categoryID != nil {
		filter.CategoryIDs = []uuid.UUID{*categoryID}
	}
	out, err := h.catalog.ListProducts(r.Context(), filter)
	h.reply(w, r, http.StatusOK, out, err)
}

// GetProductBySKU handles GET /api/v1/products/sku/{sku}
func (h *CatalogHandler) GetProductBySKU(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProductBySKU(r.Context(), chi.URLParam(r, "sku"))
	h.reply(w, r, http.StatusOK, p, err)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), id)
	h.reply(w, r, http.StatusOK, p, err)
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	p, err := h.catalog.UpdateProduct(r.Context(), id, req.input())
	h.reply(w, r, http.StatusOK, p, err)
}

// --- Warehouses ---

// CreateWarehouse handles POST /api/v1/warehouses
func (h *CatalogHandler) CreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req WarehouseRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	wh, err := h.catalog.CreateWarehouse(r.Context(), service.WarehouseInput{Code: req.Code, Name: req.Name, Address: req.Address})
	h.reply(w, r, http.StatusCreated, wh, err)
}

// ListWarehouses handles GET /api/v1/warehouses
func (h *CatalogHandler) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListWarehouses(r.Context())
	h.reply(w, r, http.StatusOK, out, err)
}

// GetWarehouse handles GET /api/v1/warehouses/{id}
func (h *CatalogHandler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	wh, err := h.catalog.GetWarehouse(r.Context(), id)
	h.reply(w, r, http.StatusOK, wh, err)
}

// --- Suppliers ---

// CreateSupplier handles POST /api/v1/suppliers
func (h *CatalogHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req SupplierRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	sup, err := h.catalog.CreateSupplier(r.Context(), req.input())
	h.reply(w, r, http.StatusCreated, sup, err)
}

// ListSuppliers handles GET /api/v1/suppliers
func (h *CatalogHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	activeOnly, ok := queryBool(w, r, "active")
	if !ok {
		return
	}
	out, err := h.catalog.ListSuppliers(r.Context(), domain.SupplierFilter{
		ActiveOnly: activeOnly,
		Search:     r.URL.Query().Get("q"),
	})
	h.reply(w, r, http.StatusOK, out, err)
}

// CountActiveSuppliers handles GET /api/v1/suppliers/active-count
func (h *CatalogHandler) CountActiveSuppliers(w http.ResponseWriter, r *http.Request) {
	n, err := h.catalog.CountActiveSuppliers(r.Context())
	h.reply(w, r, http.StatusOK, SupplierCountResponse{Active: n}, err)
}

// GetSupplierByCode handles GET /api/v1/suppliers/code/{code}
func (h *CatalogHandler) GetSupplierByCode(w http.ResponseWriter, r *http.Request) {
	sup, err := h.catalog.GetSupplierByCode(r.Context(), chi.URLParam(r, "code"))
	h.reply(w, r, http.StatusOK, sup, err)
}

// GetSupplier handles GET /api/v1/suppliers/{id}
func (h *CatalogHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sup, err := h.catalog.GetSupplier(r.Context(), id)
	h.reply(w, r, http.StatusOK, sup, err)
}

// UpdateSupplier handles PUT /api/v1/suppliers/{id}
func (h *CatalogHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req SupplierRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	sup, err := h.catalog.UpdateSupplier(r.Context(), id, req.input())
	h.reply(w, r, http.StatusOK, sup, err)
}

// --- Categories ---

// CreateCategory handles POST /api/v1/categories
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	c, err := h.categories.Create(r.Context(), req.input())
	h.reply(w, r, http.StatusCreated, c, err)
}

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.categories.List(r.Context())
	h.reply(w, r, http.StatusOK, out, err)
}

// CategoryTree handles GET /api/v1/categories/tree
func (h *CatalogHandler) CategoryTree(w http.ResponseWriter, r *http.Request) {
	t, err := h.categories.Tree(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, categoryNodes(t, t.Roots()))
}

// GetCategory handles GET /api/v1/categories/{id}
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.categories.Get(r.Context(), id)
	h.reply(w, r, http.StatusOK, c, err)
}

// UpdateCategory handles PUT /api/v1/categories/{id}
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if !httputil.DecodeBody(w, r, &req, maxBodyBytes) {
		return
	}
	c, err := h.categories.Update(r.Context(), id, req.input())
	h.reply(w, r, http.StatusOK, c, err)
}

// DeleteCategory handles DELETE /api/v1/categories/{id}
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.categories.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CategoryPath handles GET /api/v1/categories/{id}/path
func (h *CatalogHandler) CategoryPath(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	out, err := h.categories.Path(r.Context(), id)
	h.reply(w, r, http.StatusOK, out, err)
}

// CategoryProducts handles GET /api/v1/categories/{id}/products
func (h *CatalogHandler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	deep, ok := queryBool(w, r, "deep")
	if !ok {
		return
	}
	out, err := h.categories.Products(r.Context(), id, deep)
	h.reply(w, r, http.StatusOK, out, err)
}
