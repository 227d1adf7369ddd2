package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/InventoryGo/internal/domain"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

func (f *fixture) category(t *testing.T, code string, parent *domain.Category) *domain.Category {
	t.Helper()
	in := CategoryInput{Code: code, Name: code}
	if parent != nil {
		in.ParentID = &parent.ID
	}
	c, err := f.categories.Create(context.Background(), in)
	require.NoError(t, err)
	return c
}

func TestCategory_CreateSetsLevels(t *testing.T) {
	f := newFixture(t)
	root := f.category(t, "tools", nil)
	child := f.category(t, "hand", root)
	leaf := f.category(t, "hammers", child)

	assert.Equal(t, "TOOLS", root.Code)
	assert.Equal(t, 0, root.Level)
	assert.Equal(t, 1, child.Level)
	assert.Equal(t, 2, leaf.Level)

	path, err := f.categories.Path(context.Background(), leaf.ID)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, []string{"TOOLS", "HAND", "HAMMERS"}, []string{path[0].Code, path[1].Code, path[2].Code})
}

func TestCategory_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.category(t, "tools", nil)

	_, err := f.categories.Create(ctx, CategoryInput{Code: " ", Name: "x"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	missing := uuid.New()
	_, err = f.categories.Create(ctx, CategoryInput{Code: "x", Name: "x", ParentID: &missing})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.categories.Create(ctx, CategoryInput{Code: "Tools", Name: "again"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestCategory_UpdateRejectsCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.category(t, "a", nil)
	child := f.category(t, "b", root)
	grandchild := f.category(t, "c", child)

	_, err := f.categories.Update(ctx, root.ID, CategoryInput{Name: "a", ParentID: &grandchild.ID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.categories.Update(ctx, root.ID, CategoryInput{Name: "a", ParentID: &root.ID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCategory_MoveShiftsSubtreeLevels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.category(t, "a", nil)
	b := f.category(t, "b", a)
	c := f.category(t, "c", b)
	other := f.category(t, "z", nil)
	deep := f.category(t, "y", other)

	moved, err := f.categories.Update(ctx, b.ID, CategoryInput{Name: "b2", ParentID: &deep.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Level)
	assert.Equal(t, "b2", moved.Name)

	got, err := f.categories.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Level)

	moved, err = f.categories.Update(ctx, b.ID, CategoryInput{Name: "b2"})
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Level)
	assert.Nil(t, moved.ParentID)

	got, err = f.categories.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Level)
}

func TestCategory_DeleteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.category(t, "root", nil)
	leaf := f.category(t, "leaf", root)

	err := f.categories.Delete(ctx, root.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.catalog.UpdateProduct(ctx, f.product.ID, ProductInput{
		SKU: f.product.SKU, Name: f.product.Name, CategoryID: &leaf.ID,
		UnitPrice: f.product.UnitPrice, CostPrice: f.product.CostPrice, IsActive: true,
	})
	require.NoError(t, err)
	err = f.categories.Delete(ctx, leaf.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	empty := f.category(t, "empty", root)
	require.NoError(t, f.categories.Delete(ctx, empty.ID))
	_, err = f.categories.Get(ctx, empty.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.ErrorIs(t, f.categories.Delete(ctx, uuid.New()), apperrors.ErrNotFound)
}

func TestCategory_ProductsDeep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.category(t, "root", nil)
	leaf := f.category(t, "leaf", root)

	_, err := f.catalog.CreateProduct(ctx, ProductInput{
		SKU: "SKU-R", Name: "Root item", CategoryID: &root.ID, UnitPrice: decimal.NewFromInt(3), IsActive: true,
	})
	require.NoError(t, err)
	_, err = f.catalog.CreateProduct(ctx, ProductInput{
		SKU: "SKU-L", Name: "Leaf item", CategoryID: &leaf.ID, UnitPrice: decimal.NewFromInt(4), IsActive: true,
	})
	require.NoError(t, err)

	shallow, err := f.categories.Products(ctx, root.ID, false)
	require.NoError(t, err)
	require.Len(t, shallow, 1)
	assert.Equal(t, "SKU-R", shallow[0].SKU)

	deep, err := f.categories.Products(ctx, root.ID, true)
	require.NoError(t, err)
	assert.Len(t, deep, 2)

	_, err = f.categories.Products(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
