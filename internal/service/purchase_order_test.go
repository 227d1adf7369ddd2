package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/InventoryGo/internal/domain"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// approvedPurchaseOrder creates, submits and approves an order for 100 units
// of product and 20 of other into warehouse A.
func (f *fixture) approvedPurchaseOrder(t *testing.T) *domain.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	o, err := f.purchases.Create(ctx, CreatePurchaseOrderInput{
		SupplierID:  f.supplier.ID,
		WarehouseID: f.warehouseA.ID,
		Items: []PurchaseOrderItemInput{
			{ProductID: f.product.ID, Quantity: 100, UnitPrice: decimal.NewFromInt(6)},
			{ProductID: f.other.ID, Quantity: 20, UnitPrice: decimal.NewFromInt(15)},
		},
	})
	require.NoError(t, err)
	_, err = f.purchases.Submit(ctx, o.ID)
	require.NoError(t, err)
	o, err = f.purchases.Approve(ctx, o.ID, f.user)
	require.NoError(t, err)
	return o
}

func TestPurchaseOrder_Create(t *testing.T) {
	f := newFixture(t)

	o, err := f.purchases.Create(context.Background(), CreatePurchaseOrderInput{
		SupplierID:     f.supplier.ID,
		WarehouseID:    f.warehouseA.ID,
		TaxAmount:      decimal.NewFromInt(10),
		DiscountAmount: decimal.NewFromInt(4),
		Items: []PurchaseOrderItemInput{
			{ProductID: f.product.ID, Quantity: 3, UnitPrice: decimal.RequireFromString("2.50")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderDraft, o.Status)
	assert.Regexp(t, `^PO-\d{8}-0001$`, o.Number)
	assert.True(t, decimal.RequireFromString("7.5").Equal(o.Subtotal), o.Subtotal.String())
	assert.True(t, decimal.RequireFromString("13.5").Equal(o.TotalAmount), o.TotalAmount.String())
	assert.Equal(t, int64(1), o.Version)
}

func TestPurchaseOrder_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.purchases.Create(ctx, CreatePurchaseOrderInput{WarehouseID: f.warehouseA.ID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.purchases.Create(ctx, CreatePurchaseOrderInput{SupplierID: f.supplier.ID, WarehouseID: uuid.New()})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.purchases.Create(ctx, CreatePurchaseOrderInput{
		SupplierID:  f.supplier.ID,
		WarehouseID: f.warehouseA.ID,
		Items:       []PurchaseOrderItemInput{{ProductID: f.product.ID, Quantity: 0}},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, err = f.purchases.Create(ctx, CreatePurchaseOrderInput{
		SupplierID:  f.supplier.ID,
		WarehouseID: f.warehouseA.ID,
		TaxAmount:   decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}

func TestPurchaseOrder_CreateRequiresKnownActiveSupplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	items := []PurchaseOrderItemInput{{ProductID: f.product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(6)}}

	_, err := f.purchases.Create(ctx, CreatePurchaseOrderInput{SupplierID: uuid.New(), WarehouseID: f.warehouseA.ID, Items: items})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "supplier")

	inactive := false
	_, err = f.catalog.UpdateSupplier(ctx, f.supplier.ID, SupplierInput{
		Code: f.supplier.Code, Name: f.supplier.Name, Email: f.supplier.Email, IsActive: &inactive,
	})
	require.NoError(t, err)
	_, err = f.purchases.Create(ctx, CreatePurchaseOrderInput{SupplierID: f.supplier.ID, WarehouseID: f.warehouseA.ID, Items: items})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	orders, err := f.purchases.List(ctx, domain.PurchaseOrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPurchaseOrder_PartialThenFullReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.approvedPurchaseOrder(t)
	productLine, otherLine := o.Items[0].ID, o.Items[1].ID

	o, err := f.purchases.Receive(ctx, o.ID, ReceiveInput{
		Lines: []ReceiveLine{{ItemID: productLine, Quantity: 60}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderApproved, o.Status)
	assert.Equal(t, 60, o.Items[0].QuantityReceived)
	assert.Nil(t, o.ActualDeliveryDate)
	assert.Equal(t, 60, f.quantity(t, f.product, f.warehouseA))

	delivered := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	o, err = f.purchases.Receive(ctx, o.ID, ReceiveInput{
		ActualDeliveryDate: &delivered,
		Lines: []ReceiveLine{
			{ItemID: productLine, Quantity: 40},
			{ItemID: otherLine, Quantity: 20},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderReceived, o.Status)
	require.NotNil(t, o.ActualDeliveryDate)
	assert.Equal(t, delivered, *o.ActualDeliveryDate)
	assert.Equal(t, 100, f.quantity(t, f.product, f.warehouseA))
	assert.Equal(t, 20, f.quantity(t, f.other, f.warehouseA))

	movements, err := f.ledger.ListMovements(ctx, domain.MovementFilter{Reference: o.Number})
	require.NoError(t, err)
	assert.Len(t, movements, 3)
	for _, mv := range movements {
		assert.Equal(t, domain.MovementReceipt, mv.Type)
	}

	_, err = f.purchases.Receive(ctx, o.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: productLine, Quantity: 1}}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestPurchaseOrder_ReceiveRejectsOverReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.approvedPurchaseOrder(t)
	line := o.Items[1].ID

	_, err := f.purchases.Receive(ctx, o.ID, ReceiveInput{
		Lines: []ReceiveLine{{ItemID: line, Quantity: 15}, {ItemID: line, Quantity: 6}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 0, f.quantity(t, f.other, f.warehouseA))

	got, err := f.purchases.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Items[1].QuantityReceived)
}

func TestPurchaseOrder_ReceiveLineValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.approvedPurchaseOrder(t)

	_, err := f.purchases.Receive(ctx, o.ID, ReceiveInput{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.purchases.Receive(ctx, o.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: uuid.New(), Quantity: 1}}})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.purchases.Receive(ctx, o.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: o.Items[0].ID, Quantity: 0}}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}

func TestPurchaseOrder_ReceiveRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.purchases.Create(ctx, CreatePurchaseOrderInput{
		SupplierID:  f.supplier.ID,
		WarehouseID: f.warehouseA.ID,
		Items:       []PurchaseOrderItemInput{{ProductID: f.product.ID, Quantity: 5, UnitPrice: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)

	_, err = f.purchases.Receive(ctx, o.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: o.Items[0].ID, Quantity: 5}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, 0, f.quantity(t, f.product, f.warehouseA))
}

func TestPurchaseOrder_ReceiveSaveFailureRollsBackStock(t *testing.T) {
	f := newFixture(t, func(d *deps) {
		d.purchases = &failingPurchaseOrders{PurchaseOrderRepository: d.purchases}
	})
	ctx := context.Background()
	f.stock(t, f.product, f.warehouseA, 7)
	o := f.approvedPurchaseOrder(t)

	_, err := f.purchases.Receive(ctx, o.ID, ReceiveInput{
		Lines: []ReceiveLine{
			{ItemID: o.Items[0].ID, Quantity: 100},
			{ItemID: o.Items[1].ID, Quantity: 5},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, 7, f.quantity(t, f.product, f.warehouseA))
	assert.Equal(t, 0, f.quantity(t, f.other, f.warehouseA))

	got, err := f.purchases.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderApproved, got.Status)
}

func TestPurchaseOrder_ReceiveLedgerFailureRollsBackEarlierLines(t *testing.T) {
	f := newFixture(t, func(d *deps) {
		d.stock = &flakyStock{
			StockRepository: d.stock,
			fail: func(mv *domain.Movement) bool {
				return mv != nil && mv.Type == domain.MovementReceipt && mv.Quantity == 13
			},
		}
	})
	ctx := context.Background()
	o := f.approvedPurchaseOrder(t)

	_, err := f.purchases.Receive(ctx, o.ID, ReceiveInput{
		Lines: []ReceiveLine{
			{ItemID: o.Items[0].ID, Quantity: 50},
			{ItemID: o.Items[1].ID, Quantity: 13},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, 0, f.quantity(t, f.product, f.warehouseA))
	assert.Equal(t, 0, f.quantity(t, f.other, f.warehouseA))
}

func TestPurchaseOrder_EditingIsLimitedToDraftAndSubmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.purchases.Create(ctx, CreatePurchaseOrderInput{SupplierID: f.supplier.ID, WarehouseID: f.warehouseA.ID})
	require.NoError(t, err)

	_, err = f.purchases.Submit(ctx, o.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "an empty order cannot be submitted")

	o, err = f.purchases.AddItem(ctx, o.ID, PurchaseOrderItemInput{ProductID: f.product.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(o.TotalAmount))

	tax := decimal.NewFromInt(3)
	o, err = f.purchases.Update(ctx, o.ID, UpdatePurchaseOrderInput{TaxAmount: &tax})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(13).Equal(o.TotalAmount))

	_, err = f.purchases.Submit(ctx, o.ID)
	require.NoError(t, err)
	_, err = f.purchases.Approve(ctx, o.ID, f.user)
	require.NoError(t, err)

	_, err = f.purchases.AddItem(ctx, o.ID, PurchaseOrderItemInput{ProductID: f.other.ID, Quantity: 1})
	assert.ErrorIs(t, err, apperrors.ErrOrderNotEditable)
	_, err = f.purchases.RemoveItem(ctx, o.ID, o.Items[0].ID)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotEditable)
	assert.ErrorIs(t, f.purchases.Delete(ctx, o.ID), apperrors.ErrOrderNotEditable)
}

func TestPurchaseOrder_RemoveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.purchases.Create(ctx, CreatePurchaseOrderInput{
		SupplierID:  f.supplier.ID,
		WarehouseID: f.warehouseA.ID,
		Items: []PurchaseOrderItemInput{
			{ProductID: f.product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(4)},
			{ProductID: f.other.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(9)},
		},
	})
	require.NoError(t, err)

	o, err = f.purchases.RemoveItem(ctx, o.ID, o.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.True(t, decimal.NewFromInt(9).Equal(o.Subtotal))

	_, err = f.purchases.RemoveItem(ctx, o.ID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPurchaseOrder_RejectReturnsToDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.purchases.Create(ctx, CreatePurchaseOrderInput{
		SupplierID:  f.supplier.ID,
		WarehouseID: f.warehouseA.ID,
		Items:       []PurchaseOrderItemInput{{ProductID: f.product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)

	_, err = f.purchases.Reject(ctx, o.ID, "too early")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.purchases.Submit(ctx, o.ID)
	require.NoError(t, err)
	o, err = f.purchases.Reject(ctx, o.ID, "price too high")
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderDraft, o.Status)
	assert.Contains(t, o.Notes, "[REJECTED] price too high")

	o, err = f.purchases.Cancel(ctx, o.ID, "supplier closed")
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderCancelled, o.Status)
	assert.Contains(t, o.Notes, "[CANCELLED] supplier closed")

	_, err = f.purchases.Submit(ctx, o.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestPurchaseOrder_DeleteDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.purchases.Create(ctx, CreatePurchaseOrderInput{SupplierID: f.supplier.ID, WarehouseID: f.warehouseA.ID})
	require.NoError(t, err)
	require.NoError(t, f.purchases.Delete(ctx, o.ID))

	_, err = f.purchases.Get(ctx, o.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
