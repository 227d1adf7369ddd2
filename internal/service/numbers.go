package service

import (
	"context"
	"fmt"

	"github.com/utafrali/InventoryGo/internal/repository"
)

// Document number prefixes.
const (
	PrefixPurchaseOrder = "PO"
	PrefixSalesOrder    = "SO"
	PrefixShipment      = "SHIP"
	PrefixInvoice       = "INV"
	PrefixPayment       = "PAY"
)

// NumberGenerator issues human readable document numbers of the form
// PREFIX-YYYYMMDD-NNNN from a per-day counter.
type NumberGenerator struct {
	seq repository.SequenceRepository
	now Clock
}

// NewNumberGenerator creates a generator backed by seq.
func NewNumberGenerator(seq repository.SequenceRepository, now Clock) *NumberGenerator {
	if now == nil {
		now = utcNow
	}
	return &NumberGenerator{seq: seq, now: now}
}

// Next returns the next number for prefix on the current UTC day.
func (g *NumberGenerator) Next(ctx context.Context, prefix string) (string, error) {
	day := g.now().UTC()
	n, err := g.seq.Next(ctx, prefix, day)
	if err != nil {
		return "", fmt.Errorf("generate %s number: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), n), nil
}
