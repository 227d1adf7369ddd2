package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/pkg/database"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, sku, name, description, category_id, unit_price, cost_price, reorder_level, min_stock_level, is_active, created_at, updated_at`

func scanProduct(row pgx.Row, p *domain.Product) error {
	return row.Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.CategoryID,
		&p.UnitPrice,
		&p.CostPrice,
		&p.ReorderLevel,
		&p.MinStockLevel,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// Create inserts a new product. SKUs are unique case-insensitively.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.SKU,
		p.Name,
		p.Description,
		p.CategoryID,
		p.UnitPrice,
		p.CostPrice,
		p.ReorderLevel,
		p.MinStockLevel,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p domain.Product
	if err := scanProduct(r.pool.QueryRow(ctx, query, id), &p); err != nil {
		return nil, noRows(err, "get product", "product", id.String())
	}
	return &p, nil
}

// GetBySKU retrieves a product by SKU, ignoring case.
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE LOWER(sku) = LOWER($1)`

	var p domain.Product
	if err := scanProduct(r.pool.QueryRow(ctx, query, sku), &p); err != nil {
		return nil, noRows(err, "get product by sku", "product", sku)
	}
	return &p, nil
}

// Update overwrites the mutable product fields.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET sku = $2, name = $3, description = $4, category_id = $5, unit_price = $6, cost_price = $7,
			reorder_level = $8, min_stock_level = $9, is_active = $10, updated_at = $11
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		p.ID,
		p.SKU,
		p.Name,
		p.Description,
		p.CategoryID,
		p.UnitPrice,
		p.CostPrice,
		p.ReorderLevel,
		p.MinStockLevel,
		p.IsActive,
		p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID.String())
	}
	return nil
}

// List returns products ordered by SKU.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var w where
	if filter.ActiveOnly {
		w.conds = append(w.conds, "is_active")
	}
	if len(filter.CategoryIDs) > 0 {
		w.add("category_id = ANY($%d)", filter.CategoryIDs)
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY sku`, productColumns, w.clause())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// CountByCategories counts products assigned to any of categoryIDs.
func (r *ProductRepository) CountByCategories(ctx context.Context, categoryIDs []uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = ANY($1)`, categoryIDs).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count products by category: %w", err)
	}
	return n, nil
}

// WarehouseRepository implements repository.WarehouseRepository using PostgreSQL.
type WarehouseRepository struct {
	pool database.DBTX
}

// NewWarehouseRepository creates a new PostgreSQL-backed warehouse repository.
func NewWarehouseRepository(pool database.DBTX) *WarehouseRepository {
	return &WarehouseRepository{pool: pool}
}

const warehouseColumns = `id, code, name, address, is_active, created_at, updated_at`

func scanWarehouse(row pgx.Row, w *domain.Warehouse) error {
	return row.Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
}

// Create inserts a new warehouse.
func (r *WarehouseRepository) Create(ctx context.Context, w *domain.Warehouse) error {
	query := `INSERT INTO warehouses (` + warehouseColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query, w.ID, w.Code, w.Name, w.Address, w.IsActive, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("warehouse", "code", w.Code)
		}
		return fmt.Errorf("insert warehouse: %w", err)
	}
	return nil
}

// GetByID retrieves a warehouse by its ID.
func (r *WarehouseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE id = $1`

	var w domain.Warehouse
	if err := scanWarehouse(r.pool.QueryRow(ctx, query, id), &w); err != nil {
		return nil, noRows(err, "get warehouse", "warehouse", id.String())
	}
	return &w, nil
}

// GetByCode retrieves a warehouse by code, ignoring case.
func (r *WarehouseRepository) GetByCode(ctx context.Context, code string) (*domain.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE LOWER(code) = LOWER($1)`

	var w domain.Warehouse
	if err := scanWarehouse(r.pool.QueryRow(ctx, query, code), &w); err != nil {
		return nil, noRows(err, "get warehouse by code", "warehouse", code)
	}
	return &w, nil
}

// List returns all warehouses ordered by code.
func (r *WarehouseRepository) List(ctx context.Context) ([]domain.Warehouse, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+warehouseColumns+` FROM warehouses ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()

	warehouses := make([]domain.Warehouse, 0)
	for rows.Next() {
		var w domain.Warehouse
		if err := scanWarehouse(rows, &w); err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate warehouses: %w", err)
	}
	return warehouses, nil
}

// SupplierRepository implements repository.SupplierRepository using PostgreSQL.
type SupplierRepository struct {
	pool database.DBTX
}

// NewSupplierRepository creates a new PostgreSQL-backed supplier repository.
func NewSupplierRepository(pool database.DBTX) *SupplierRepository {
	return &SupplierRepository{pool: pool}
}

const (
	supplierColumns = `id, code, name, contact_person, email, phone, address, city, country, payment_terms, rating, is_active, created_at, updated_at`

	supplierEmailConstraint = "suppliers_email_key"
)

func scanSupplier(row pgx.Row, s *domain.Supplier) error {
	return row.Scan(
		&s.ID,
		&s.Code,
		&s.Name,
		&s.ContactPerson,
		&s.Email,
		&s.Phone,
		&s.Address,
		&s.City,
		&s.Country,
		&s.PaymentTerms,
		&s.Rating,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

// supplierExists maps a unique violation to the field that clashed.
func supplierExists(err error, s *domain.Supplier) error {
	if constraintName(err) == supplierEmailConstraint {
		return apperrors.AlreadyExists("supplier", "email", s.Email)
	}
	return apperrors.AlreadyExists("supplier", "code", s.Code)
}

// Create inserts a new supplier.
func (r *SupplierRepository) Create(ctx context.Context, s *domain.Supplier) error {
	query := `INSERT INTO suppliers (` + supplierColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Code,
		s.Name,
		s.ContactPerson,
		s.Email,
		s.Phone,
		s.Address,
		s.City,
		s.Country,
		s.PaymentTerms,
		s.Rating,
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return supplierExists(err, s)
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

// GetByID retrieves a supplier by its ID.
func (r *SupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1`

	var s domain.Supplier
	if err := scanSupplier(r.pool.QueryRow(ctx, query, id), &s); err != nil {
		return nil, noRows(err, "get supplier", "supplier", id.String())
	}
	return &s, nil
}

// GetByCode retrieves a supplier by code, ignoring case.
func (r *SupplierRepository) GetByCode(ctx context.Context, code string) (*domain.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE LOWER(code) = LOWER($1)`

	var s domain.Supplier
	if err := scanSupplier(r.pool.QueryRow(ctx, query, code), &s); err != nil {
		return nil, noRows(err, "get supplier by code", "supplier", code)
	}
	return &s, nil
}

// Update overwrites the mutable supplier fields.
func (r *SupplierRepository) Update(ctx context.Context, s *domain.Supplier) error {
	query := `
		UPDATE suppliers
		SET code = $2, name = $3, contact_person = $4, email = $5, phone = $6, address = $7, city = $8,
			country = $9, payment_terms = $10, rating = $11, is_active = $12, updated_at = $13
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Code,
		s.Name,
		s.ContactPerson,
		s.Email,
		s.Phone,
		s.Address,
		s.City,
		s.Country,
		s.PaymentTerms,
		s.Rating,
		s.IsActive,
		s.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return supplierExists(err, s)
		}
		return fmt.Errorf("update supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("supplier", s.ID.String())
	}
	return nil
}

// List returns suppliers ordered by code.
func (r *SupplierRepository) List(ctx context.Context, filter domain.SupplierFilter) ([]domain.Supplier, error) {
	var w where
	if filter.ActiveOnly {
		w.conds = append(w.conds, "is_active")
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		w.add("(code ILIKE $%[1]d OR name ILIKE $%[1]d OR email ILIKE $%[1]d)", "%"+term+"%")
	}

	query := fmt.Sprintf(`SELECT %s FROM suppliers %s ORDER BY code`, supplierColumns, w.clause())

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0)
	for rows.Next() {
		var s domain.Supplier
		if err := scanSupplier(rows, &s); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suppliers: %w", err)
	}
	return suppliers, nil
}

// CountActive counts suppliers that are still active.
func (r *SupplierRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active suppliers: %w", err)
	}
	return n, nil
}

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

const categoryColumns = `id, code, name, description, parent_id, level, created_at, updated_at`

func scanCategory(row pgx.Row, c *domain.Category) error {
	return row.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.ParentID, &c.Level, &c.CreatedAt, &c.UpdatedAt)
}

// Create inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `INSERT INTO categories (` + categoryColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Code, c.Name, c.Description, c.ParentID, c.Level, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "code", c.Code)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// GetByID retrieves a category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	var c domain.Category
	if err := scanCategory(r.pool.QueryRow(ctx, query, id), &c); err != nil {
		return nil, noRows(err, "get category", "category", id.String())
	}
	return &c, nil
}

// Update overwrites the category's fields.
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	query := `
		UPDATE categories
		SET code = $2, name = $3, description = $4, parent_id = $5, level = $6, updated_at = $7
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, c.ID, c.Code, c.Name, c.Description, c.ParentID, c.Level, c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "code", c.Code)
		}
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("category", c.ID.String())
	}
	return nil
}

// Delete removes a category.
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("category", id.String())
	}
	return nil
}

// List returns all categories ordered by code.
func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}
