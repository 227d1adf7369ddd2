package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock Repository ---

type mockSequenceRepository struct {
	mock.Mock
}

func (m *mockSequenceRepository) Next(ctx context.Context, prefix string, day time.Time) (int, error) {
	args := m.Called(ctx, prefix, day)
	return args.Int(0), args.Error(1)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// --- Tests ---

func TestNumberGenerator_Next_Format(t *testing.T) {
	repo := new(mockSequenceRepository)
	day := time.Date(2026, 3, 9, 15, 4, 5, 0, time.UTC)
	gen := NewNumberGenerator(repo, fixedClock(day))
	ctx := context.Background()

	repo.On("Next", ctx, PrefixSalesOrder, day).Return(7, nil)

	number, err := gen.Next(ctx, PrefixSalesOrder)
	require.NoError(t, err)
	assert.Equal(t, "SO-20260309-0007", number)
	repo.AssertExpectations(t)
}

func TestNumberGenerator_Next_UsesUTCDay(t *testing.T) {
	repo := new(mockSequenceRepository)
	local := time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	gen := NewNumberGenerator(repo, fixedClock(local))
	ctx := context.Background()

	repo.On("Next", ctx, PrefixInvoice, mock.AnythingOfType("time.Time")).Return(12345, nil)

	number, err := gen.Next(ctx, PrefixInvoice)
	require.NoError(t, err)
	assert.Equal(t, "INV-20260310-12345", number)
}

func TestNumberGenerator_Next_RepositoryError(t *testing.T) {
	repo := new(mockSequenceRepository)
	gen := NewNumberGenerator(repo, nil)
	ctx := context.Background()

	repo.On("Next", ctx, PrefixPayment, mock.AnythingOfType("time.Time")).Return(0, errInjected)

	number, err := gen.Next(ctx, PrefixPayment)
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Contains(t, err.Error(), "generate PAY number")
	assert.Empty(t, number)
}

func TestNumberGenerator_Next_CountsPerPrefix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := NewNumberGenerator(f.repos.Sequences, nil)

	first, err := gen.Next(ctx, PrefixPurchaseOrder)
	require.NoError(t, err)
	second, err := gen.Next(ctx, PrefixPurchaseOrder)
	require.NoError(t, err)
	other, err := gen.Next(ctx, PrefixShipment)
	require.NoError(t, err)

	assert.Regexp(t, `^PO-\d{8}-0001$`, first)
	assert.Regexp(t, `^PO-\d{8}-0002$`, second)
	assert.Regexp(t, `^SHIP-\d{8}-0001$`, other)
}
