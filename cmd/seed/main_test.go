package main

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedConfig_Defaults(t *testing.T) {
	sc, err := loadSeedConfig()
	require.NoError(t, err)
	assert.Equal(t, 200, sc.Products)
	assert.Equal(t, int64(42), sc.RandSeed)
	assert.Equal(t, 200, sc.MaxOpeningStock)
}

func TestLoadSeedConfig_UsesPrefixedVariables(t *testing.T) {
	t.Setenv("PRODUCTS", "999")
	t.Setenv("SEED_PRODUCTS", "25")
	t.Setenv("SEED_RAND_SEED", "7")

	sc, err := loadSeedConfig()
	require.NoError(t, err)
	assert.Equal(t, 25, sc.Products)
	assert.Equal(t, int64(7), sc.RandSeed)
}

func TestLoadSeedConfig_Invalid(t *testing.T) {
	t.Setenv("SEED_MAX_OPENING_STOCK", "0")
	_, err := loadSeedConfig()
	assert.Error(t, err)
}

func TestGenerateProduct_Deterministic(t *testing.T) {
	ids := make(map[string]uuid.UUID, len(leafCategories))
	for _, code := range leafCategories {
		ids[code] = uuid.New()
	}

	a := generateProduct(rand.New(rand.NewSource(42)), 6, ids)
	b := generateProduct(rand.New(rand.NewSource(42)), 6, ids)

	assert.Equal(t, a, b)
	assert.Equal(t, "SKU-00007", a.SKU)
	require.NotNil(t, a.CategoryID)
	assert.Equal(t, ids[leafCategories[1]], *a.CategoryID)
	assert.True(t, a.UnitPrice.GreaterThan(a.CostPrice))
	assert.LessOrEqual(t, a.MinStockLevel, a.ReorderLevel)
}
