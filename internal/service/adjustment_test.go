package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/InventoryGo/internal/domain"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

func (f *fixture) propose(t *testing.T, change int, typ domain.AdjustmentType) *domain.StockAdjustment {
	t.Helper()
	a, err := f.adjustments.Propose(context.Background(), ProposeAdjustmentInput{
		ProductID:      f.product.ID,
		WarehouseID:    f.warehouseA.ID,
		QuantityChange: change,
		Type:           typ,
		Reason:         "cycle count",
		PerformedBy:    &f.user,
	})
	require.NoError(t, err)
	return a
}

func TestAdjustment_ProposeApproveApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 20)

	a := f.propose(t, -5, domain.AdjustmentRemove)
	assert.Equal(t, domain.AdjustmentPending, a.Status)
	assert.Equal(t, 20, a.QuantityBefore)
	assert.Equal(t, 15, a.QuantityAfter)
	assert.False(t, a.Applied)
	assert.Equal(t, 20, f.quantity(t, f.product, f.warehouseA))

	approver := f.user
	a, err := f.adjustments.Decide(ctx, a.ID, true, approver)
	require.NoError(t, err)
	assert.Equal(t, domain.AdjustmentApproved, a.Status)
	require.NotNil(t, a.ApprovedBy)
	assert.Equal(t, approver, *a.ApprovedBy)

	a, err = f.adjustments.Apply(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, a.Applied)
	assert.NotNil(t, a.AppliedAt)
	assert.Equal(t, 20, a.QuantityBefore)
	assert.Equal(t, 15, a.QuantityAfter)
	assert.Equal(t, 15, f.quantity(t, f.product, f.warehouseA))

	movements, err := f.ledger.ListMovements(ctx, domain.MovementFilter{Reference: a.ID.String()})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, domain.MovementAdjustment, movements[0].Type)
	assert.Equal(t, 5, movements[0].Quantity)
}

func TestAdjustment_ApplyTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.propose(t, 4, domain.AdjustmentAdd)
	_, err := f.adjustments.Decide(ctx, a.ID, true, f.user)
	require.NoError(t, err)
	_, err = f.adjustments.Apply(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.adjustments.Apply(ctx, a.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, 4, f.quantity(t, f.product, f.warehouseA))
}

func TestAdjustment_ApplyPendingNeedsApproval(t *testing.T) {
	f := newFixture(t)

	a := f.propose(t, 4, domain.AdjustmentAdd)
	_, err := f.adjustments.Apply(context.Background(), a.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPendingApproval)
	assert.Equal(t, 0, f.quantity(t, f.product, f.warehouseA))
}

func TestAdjustment_RejectedCannotBeApplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.propose(t, 4, domain.AdjustmentCorrection)
	a, err := f.adjustments.Decide(ctx, a.ID, false, f.user)
	require.NoError(t, err)
	assert.Equal(t, domain.AdjustmentRejected, a.Status)

	_, err = f.adjustments.Apply(ctx, a.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.adjustments.Decide(ctx, a.ID, true, f.user)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestAdjustment_ProposeValidation(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.product, f.warehouseA, 3)

	tests := []struct {
		name   string
		change int
		typ    domain.AdjustmentType
		reason string
		want   error
	}{
		{"zero change", 0, domain.AdjustmentAdd, "x", apperrors.ErrInvalidAmount},
		{"unknown type", 1, "SHRINK", "x", apperrors.ErrInvalidInput},
		{"negative add", -1, domain.AdjustmentAdd, "x", apperrors.ErrInvalidInput},
		{"positive remove", 1, domain.AdjustmentRemove, "x", apperrors.ErrInvalidInput},
		{"missing reason", 1, domain.AdjustmentAdd, " ", apperrors.ErrInvalidInput},
		{"below zero", -4, domain.AdjustmentRemove, "x", apperrors.ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.adjustments.Propose(context.Background(), ProposeAdjustmentInput{
				ProductID:      f.product.ID,
				WarehouseID:    f.warehouseA.ID,
				QuantityChange: tt.change,
				Type:           tt.typ,
				Reason:         tt.reason,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAdjustment_ApplyFailsWhenStockMovedOn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 5)

	a := f.propose(t, -5, domain.AdjustmentRemove)
	_, err := f.adjustments.Decide(ctx, a.ID, true, f.user)
	require.NoError(t, err)

	_, err = f.ledger.RemoveStock(ctx, StockChange{ProductID: f.product.ID, WarehouseID: f.warehouseA.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = f.adjustments.Apply(ctx, a.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	got, err := f.adjustments.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Applied)
	assert.Equal(t, 3, f.quantity(t, f.product, f.warehouseA))
}

func TestAdjustment_ApplySaveFailureRestoresStock(t *testing.T) {
	f := newFixture(t, func(d *deps) {
		d.adjustments = &failingAdjustments{AdjustmentRepository: d.adjustments}
	})
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 10)

	a := f.propose(t, 6, domain.AdjustmentAdd)
	_, err := f.adjustments.Decide(ctx, a.ID, true, f.user)
	require.NoError(t, err)

	_, err = f.adjustments.Apply(ctx, a.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, 10, f.quantity(t, f.product, f.warehouseA))

	got, err := f.adjustments.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Applied)
}

func TestAdjustment_ListByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.propose(t, 1, domain.AdjustmentAdd)
	f.propose(t, 2, domain.AdjustmentAdd)
	_, err := f.adjustments.Decide(ctx, first.ID, false, f.user)
	require.NoError(t, err)

	pending, err := f.adjustments.List(ctx, domain.AdjustmentFilter{Status: domain.AdjustmentPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].QuantityChange)
}
