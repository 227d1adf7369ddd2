// Package main seeds an inventory database with a deterministic catalog:
// a category hierarchy, warehouses, suppliers, products and opening stock.
// Re-running is safe; existing rows are looked up by code or SKU.
//
// Database settings come from the service's variables. Seed settings use
// the SEED_ prefix (SEED_PRODUCTS, SEED_RAND_SEED, SEED_MAX_OPENING_STOCK);
// the -products flag overrides SEED_PRODUCTS.
//
// Run: go run ./cmd/seed -products 500
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/InventoryGo/internal/config"
	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/repository/postgres"
	"github.com/utafrali/InventoryGo/internal/service"
	"github.com/utafrali/InventoryGo/migrations"
	"github.com/utafrali/InventoryGo/pkg/database"
	pkgconfig "github.com/utafrali/InventoryGo/pkg/config"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
	"github.com/utafrali/InventoryGo/pkg/logger"
	"github.com/utafrali/InventoryGo/pkg/retry"
)

// seedConfig holds the SEED_ prefixed settings.
type seedConfig struct {
	Products        int   `env:"PRODUCTS" envDefault:"200"`
	RandSeed        int64 `env:"RAND_SEED" envDefault:"42"`
	MaxOpeningStock int   `env:"MAX_OPENING_STOCK" envDefault:"200"`
}

func loadSeedConfig() (seedConfig, error) {
	var sc seedConfig
	if err := pkgconfig.LoadWithOptions(&sc, env.Options{Prefix: "SEED_"}); err != nil {
		return sc, err
	}
	if sc.Products < 0 {
		return sc, fmt.Errorf("SEED_PRODUCTS must not be negative, got %d", sc.Products)
	}
	if sc.MaxOpeningStock < 1 {
		return sc, fmt.Errorf("SEED_MAX_OPENING_STOCK must be >= 1, got %d", sc.MaxOpeningStock)
	}
	return sc, nil
}

type categoryDef struct {
	Code   string
	Name   string
	Parent string
}

var categoryDefs = []categoryDef{
	{"HW", "Hardware", ""},
	{"HW-FAST", "Fasteners", "HW"},
	{"HW-TOOL", "Hand Tools", "HW"},
	{"EL", "Electrical", ""},
	{"EL-CABLE", "Cable", "EL"},
	{"EL-LIGHT", "Lighting", "EL"},
	{"PK", "Packaging", ""},
}

var leafCategories = []string{"HW-FAST", "HW-TOOL", "EL-CABLE", "EL-LIGHT", "PK"}

var warehouseDefs = []service.WarehouseInput{
	{Code: "IST-01", Name: "Istanbul Main", Address: "Tuzla Organize Sanayi"},
	{Code: "ANK-01", Name: "Ankara Depot", Address: "Sincan OSB"},
	{Code: "IZM-01", Name: "Izmir Depot", Address: "Kemalpasa OSB"},
}

var supplierDefs = []service.SupplierInput{
	{Code: "ANADOLU", Name: "Anadolu Hirdavat", Email: "siparis@anadolu-hirdavat.test", City: "Istanbul", Country: "TR", PaymentTerms: "Net 30"},
	{Code: "EGEKABLO", Name: "Ege Kablo", Email: "orders@egekablo.test", City: "Izmir", Country: "TR", PaymentTerms: "Net 45"},
	{Code: "BOXPACK", Name: "BoxPack Ambalaj", Email: "sales@boxpack.test", City: "Bursa", Country: "TR", PaymentTerms: "Net 15"},
}

var nouns = []string{"Bolt", "Washer", "Screwdriver", "Wrench", "Cable", "Socket", "Bulb", "Box", "Tape", "Clamp"}
var adjectives = []string{"Steel", "Brass", "Heavy", "Compact", "Insulated", "Galvanized", "Pro", "Mini"}

func main() {
	log := logger.New("inventory-seed", "info")

	sc, err := loadSeedConfig()
	if err != nil {
		log.Error("failed to load seed config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	flag.IntVar(&sc.Products, "products", sc.Products, "number of products to seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, sc, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, sc seedConfig, log *slog.Logger) error {
	// 1. Connect and migrate.
	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		MaxConns: 4,
		MinConns: 1,
	}, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	products := postgres.NewProductRepository(pool)
	warehouses := postgres.NewWarehouseRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	catalog := service.NewCatalogService(products, warehouses, categoryRepo, postgres.NewSupplierRepository(pool), log)
	categories := service.NewCategoryService(categoryRepo, products, log)
	ledger := service.NewLedgerService(postgres.NewStockRepository(pool), products, categoryRepo, nil, nil, nil, retry.DefaultPolicy(), log)

	// 2. Categories, parents first.
	categoryIDs, err := seedCategories(ctx, categories)
	if err != nil {
		return err
	}
	log.Info("categories seeded", slog.Int("count", len(categoryIDs)))

	// 3. Warehouses.
	warehouseIDs, err := seedWarehouses(ctx, catalog)
	if err != nil {
		return err
	}
	log.Info("warehouses seeded", slog.Int("count", len(warehouseIDs)))

	// 4. Suppliers.
	supplierIDs, err := seedSuppliers(ctx, catalog)
	if err != nil {
		return err
	}
	log.Info("suppliers seeded", slog.Int("count", len(supplierIDs)))

	// 5. Products and opening stock.
	rng := rand.New(rand.NewSource(sc.RandSeed))
	var created, stocked int
	for i := range sc.Products {
		in := generateProduct(rng, i, categoryIDs)
		p, err := catalog.CreateProduct(ctx, in)
		switch {
		case errors.Is(err, apperrors.ErrAlreadyExists):
			if p, err = catalog.GetProductBySKU(ctx, in.SKU); err != nil {
				return fmt.Errorf("lookup product %s: %w", in.SKU, err)
			}
		case err != nil:
			return fmt.Errorf("create product %s: %w", in.SKU, err)
		default:
			created++
		}

		for _, whID := range warehouseIDs {
			qty, err := ledger.GetQuantity(ctx, p.ID, whID)
			if err != nil {
				return fmt.Errorf("read stock for %s: %w", p.SKU, err)
			}
			if qty > 0 {
				continue
			}
			if _, err := ledger.AddStock(ctx, service.StockChange{
				ProductID:    p.ID,
				WarehouseID:  whID,
				Quantity:     rng.Intn(sc.MaxOpeningStock) + 1,
				MovementType: domain.MovementReceipt,
				Reference:    "SEED",
				Reason:       "opening balance",
			}); err != nil {
				return fmt.Errorf("add stock for %s: %w", p.SKU, err)
			}
			stocked++
		}

		if (i+1)%100 == 0 {
			log.Info("progress", slog.Int("products", i+1), slog.Int("total", sc.Products))
		}
	}

	log.Info("seed complete",
		slog.Int("products_created", created),
		slog.Int("stock_records", stocked),
	)
	return nil
}

func seedCategories(ctx context.Context, svc *service.CategoryService) (map[string]uuid.UUID, error) {
	existing, err := svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	ids := make(map[string]uuid.UUID, len(categoryDefs))
	for _, c := range existing {
		ids[c.Code] = c.ID
	}

	for _, def := range categoryDefs {
		if _, ok := ids[def.Code]; ok {
			continue
		}
		in := service.CategoryInput{Code: def.Code, Name: def.Name}
		if def.Parent != "" {
			parent := ids[def.Parent]
			in.ParentID = &parent
		}
		c, err := svc.Create(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("create category %s: %w", def.Code, err)
		}
		ids[def.Code] = c.ID
	}
	return ids, nil
}

func seedWarehouses(ctx context.Context, svc *service.CatalogService) ([]uuid.UUID, error) {
	existing, err := svc.ListWarehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	byCode := make(map[string]uuid.UUID, len(existing))
	for _, w := range existing {
		byCode[w.Code] = w.ID
	}

	ids := make([]uuid.UUID, 0, len(warehouseDefs))
	for _, def := range warehouseDefs {
		if id, ok := byCode[def.Code]; ok {
			ids = append(ids, id)
			continue
		}
		w, err := svc.CreateWarehouse(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("create warehouse %s: %w", def.Code, err)
		}
		ids = append(ids, w.ID)
	}
	return ids, nil
}

func seedSuppliers(ctx context.Context, svc *service.CatalogService) ([]uuid.UUID, error) {
	existing, err := svc.ListSuppliers(ctx, domain.SupplierFilter{})
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	byCode := make(map[string]uuid.UUID, len(existing))
	for _, s := range existing {
		byCode[s.Code] = s.ID
	}

	ids := make([]uuid.UUID, 0, len(supplierDefs))
	for _, def := range supplierDefs {
		if id, ok := byCode[def.Code]; ok {
			ids = append(ids, id)
			continue
		}
		s, err := svc.CreateSupplier(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("create supplier %s: %w", def.Code, err)
		}
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// generateProduct derives a product from its index so re-runs produce the
// same SKUs.
func generateProduct(rng *rand.Rand, i int, categoryIDs map[string]uuid.UUID) service.ProductInput {
	noun := nouns[rng.Intn(len(nouns))]
	adj := adjectives[rng.Intn(len(adjectives))]
	categoryID := categoryIDs[leafCategories[i%len(leafCategories)]]

	cost := decimal.NewFromInt(int64(rng.Intn(9000) + 100)).Shift(-2)
	markup := decimal.NewFromFloat(1.2 + rng.Float64()).Round(2)
	reorder := rng.Intn(20) + 5

	return service.ProductInput{
		SKU:           fmt.Sprintf("SKU-%05d", i+1),
		Name:          fmt.Sprintf("%s %s %d", adj, noun, i+1),
		CategoryID:    &categoryID,
		UnitPrice:     cost.Mul(markup).Round(2),
		CostPrice:     cost,
		ReorderLevel:  reorder,
		MinStockLevel: reorder / 2,
		IsActive:      true,
	}
}
