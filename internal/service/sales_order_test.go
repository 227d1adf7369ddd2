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

// salesOrder creates a PENDING order from warehouse A for productQty units of
// product and otherQty units of other. Zero quantities are left out.
func (f *fixture) salesOrder(t *testing.T, productQty, otherQty int) *domain.SalesOrder {
	t.Helper()
	var items []SalesOrderItemInput
	if productQty > 0 {
		items = append(items, SalesOrderItemInput{ProductID: f.product.ID, Quantity: productQty})
	}
	if otherQty > 0 {
		items = append(items, SalesOrderItemInput{ProductID: f.other.ID, Quantity: otherQty})
	}
	o, err := f.sales.Create(context.Background(), CreateSalesOrderInput{
		CustomerID:  uuid.New(),
		WarehouseID: f.warehouseA.ID,
		Items:       items,
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) confirmedSalesOrder(t *testing.T, productQty, otherQty int) *domain.SalesOrder {
	t.Helper()
	o := f.salesOrder(t, productQty, otherQty)
	o, err := f.sales.Confirm(context.Background(), o.ID)
	require.NoError(t, err)
	return o
}

func (f *fixture) fulfilledSalesOrder(t *testing.T, productQty, otherQty int) *domain.SalesOrder {
	t.Helper()
	o := f.confirmedSalesOrder(t, productQty, otherQty)
	o, err := f.sales.Fulfill(context.Background(), o.ID)
	require.NoError(t, err)
	return o
}

func TestSalesOrder_CreatePricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	custom := decimal.RequireFromString("17.25")

	o, err := f.sales.Create(context.Background(), CreateSalesOrderInput{
		CustomerID:   uuid.New(),
		WarehouseID:  f.warehouseA.ID,
		TaxAmount:    decimal.NewFromInt(5),
		ShippingCost: decimal.NewFromInt(8),
		Items: []SalesOrderItemInput{
			{ProductID: f.product.ID, Quantity: 2},
			{ProductID: f.other.ID, Quantity: 1, UnitPrice: &custom},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderPending, o.Status)
	assert.Regexp(t, `^SO-\d{8}-0001$`, o.Number)
	assert.True(t, decimal.NewFromInt(10).Equal(o.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("37.25").Equal(o.Subtotal), o.Subtotal.String())
	assert.True(t, decimal.RequireFromString("50.25").Equal(o.TotalAmount), o.TotalAmount.String())
}

func TestSalesOrder_CreateRejectsInactiveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.UpdateProduct(ctx, f.other.ID, ProductInput{
		SKU: f.other.SKU, Name: f.other.Name, UnitPrice: f.other.UnitPrice, CostPrice: f.other.CostPrice,
	})
	require.NoError(t, err)

	_, err = f.sales.Create(ctx, CreateSalesOrderInput{
		CustomerID:  uuid.New(),
		WarehouseID: f.warehouseA.ID,
		Items:       []SalesOrderItemInput{{ProductID: f.other.ID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSalesOrder_ConfirmChecksAvailabilityWithoutDeducting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 4)

	o := f.salesOrder(t, 5, 0)
	_, err := f.sales.Confirm(ctx, o.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	f.stock(t, f.product, f.warehouseA, 1)
	o, err = f.sales.Confirm(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderConfirmed, o.Status)
	assert.Equal(t, 5, f.quantity(t, f.product, f.warehouseA))
}

func TestSalesOrder_ConfirmSumsDuplicateLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 5)

	o, err := f.sales.Create(ctx, CreateSalesOrderInput{
		CustomerID:  uuid.New(),
		WarehouseID: f.warehouseA.ID,
		Items: []SalesOrderItemInput{
			{ProductID: f.product.ID, Quantity: 3},
			{ProductID: f.product.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	_, err = f.sales.Confirm(ctx, o.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
}

func TestSalesOrder_FulfillRemovesEveryLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 5)
	f.stock(t, f.other, f.warehouseA, 3)

	o := f.fulfilledSalesOrder(t, 5, 3)
	assert.Equal(t, domain.SalesOrderFulfilled, o.Status)
	assert.Equal(t, 0, f.quantity(t, f.product, f.warehouseA))
	assert.Equal(t, 0, f.quantity(t, f.other, f.warehouseA))

	movements, err := f.ledger.ListMovements(ctx, domain.MovementFilter{Reference: o.Number})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, mv := range movements {
		assert.Equal(t, domain.MovementShipment, mv.Type)
	}
}

func TestSalesOrder_FulfillInsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 5)
	f.stock(t, f.other, f.warehouseA, 3)
	o := f.confirmedSalesOrder(t, 5, 3)

	_, err := f.ledger.RemoveStock(ctx, StockChange{ProductID: f.other.ID, WarehouseID: f.warehouseA.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.sales.Fulfill(ctx, o.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, 5, f.quantity(t, f.product, f.warehouseA))
	assert.Equal(t, 2, f.quantity(t, f.other, f.warehouseA))

	got, err := f.sales.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderConfirmed, got.Status)
}

func TestSalesOrder_FulfillLineFailureRestoresEarlierLines(t *testing.T) {
	var blocked uuid.UUID
	f := newFixture(t, func(d *deps) {
		d.stock = &flakyStock{
			StockRepository: d.stock,
			fail: func(mv *domain.Movement) bool {
				return mv != nil && mv.Type == domain.MovementShipment && mv.ProductID == blocked
			},
		}
	})
	blocked = f.other.ID
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 5)
	f.stock(t, f.other, f.warehouseA, 3)
	o := f.confirmedSalesOrder(t, 5, 3)

	_, err := f.sales.Fulfill(ctx, o.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, 5, f.quantity(t, f.product, f.warehouseA))
	assert.Equal(t, 3, f.quantity(t, f.other, f.warehouseA))

	got, err := f.sales.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderConfirmed, got.Status)
}

func TestSalesOrder_FulfillSaveFailureRestoresStock(t *testing.T) {
	f := newFixture(t, func(d *deps) {
		d.salesOrders = &failingSalesOrders{SalesOrderRepository: d.salesOrders, status: domain.SalesOrderFulfilled}
	})
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 5)
	o := f.confirmedSalesOrder(t, 4, 0)

	_, err := f.sales.Fulfill(ctx, o.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, 5, f.quantity(t, f.product, f.warehouseA))
}

func TestSalesOrder_CancelFulfilledRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 5)
	f.stock(t, f.other, f.warehouseA, 3)
	o := f.fulfilledSalesOrder(t, 5, 3)

	o, err := f.sales.Cancel(ctx, o.ID, "customer changed mind")
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderCancelled, o.Status)
	assert.Contains(t, o.Notes, "[CANCELLED] customer changed mind")
	assert.Equal(t, 5, f.quantity(t, f.product, f.warehouseA))
	assert.Equal(t, 3, f.quantity(t, f.other, f.warehouseA))

	movements, err := f.ledger.ListMovements(ctx, domain.MovementFilter{
		Reference: o.Number,
		Type:      domain.MovementAdjustment,
	})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, reasonFulfilledCancellation, movements[0].Reason)
}

func TestSalesOrder_CancelSaveFailureKeepsFulfilled(t *testing.T) {
	f := newFixture(t, func(d *deps) {
		d.salesOrders = &failingSalesOrders{SalesOrderRepository: d.salesOrders, status: domain.SalesOrderCancelled}
	})
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 5)
	o := f.fulfilledSalesOrder(t, 5, 0)

	_, err := f.sales.Cancel(ctx, o.ID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, 0, f.quantity(t, f.product, f.warehouseA))

	got, err := f.sales.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderFulfilled, got.Status)
}

func TestSalesOrder_CancelPendingTouchesNoStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 5)
	o := f.salesOrder(t, 2, 0)

	o, err := f.sales.Cancel(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderCancelled, o.Status)
	assert.Empty(t, o.Notes)
	assert.Equal(t, 5, f.quantity(t, f.product, f.warehouseA))
}

func TestSalesOrder_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 5)
	o := f.fulfilledSalesOrder(t, 1, 0)

	_, err := f.sales.Deliver(ctx, o.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	o, err = f.sales.Ship(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderShipped, o.Status)

	_, err = f.sales.Cancel(ctx, o.ID, "too late")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	o, err = f.sales.Deliver(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderDelivered, o.Status)
	assert.Equal(t, 4, f.quantity(t, f.product, f.warehouseA))
}

func TestSalesOrder_EditingOnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 10)
	f.stock(t, f.other, f.warehouseA, 10)
	o := f.salesOrder(t, 1, 0)

	o, err := f.sales.AddItem(ctx, o.ID, SalesOrderItemInput{ProductID: f.other.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.True(t, decimal.NewFromInt(50).Equal(o.TotalAmount), o.TotalAmount.String())

	address := "1 Dock Road"
	shipping := decimal.NewFromInt(4)
	o, err = f.sales.Update(ctx, o.ID, UpdateSalesOrderInput{ShippingAddress: &address, ShippingCost: &shipping})
	require.NoError(t, err)
	assert.Equal(t, address, o.ShippingAddress)
	assert.True(t, decimal.NewFromInt(54).Equal(o.TotalAmount), o.TotalAmount.String())

	o, err = f.sales.RemoveItem(ctx, o.ID, o.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)

	_, err = f.sales.Confirm(ctx, o.ID)
	require.NoError(t, err)

	_, err = f.sales.AddItem(ctx, o.ID, SalesOrderItemInput{ProductID: f.product.ID, Quantity: 1})
	assert.ErrorIs(t, err, apperrors.ErrOrderNotEditable)
	_, err = f.sales.Update(ctx, o.ID, UpdateSalesOrderInput{ShippingAddress: &address})
	assert.ErrorIs(t, err, apperrors.ErrOrderNotEditable)
}

func TestSalesOrder_ConfirmEmptyOrder(t *testing.T) {
	f := newFixture(t)
	o := f.salesOrder(t, 0, 0)

	_, err := f.sales.Confirm(context.Background(), o.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
