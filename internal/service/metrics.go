package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// LedgerMetrics counts stock mutations. A nil *LedgerMetrics records nothing.
type LedgerMetrics struct {
	movements *prometheus.CounterVec
	units     *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewLedgerMetrics creates the ledger collectors and registers them with reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_stock_mutations_total",
			Help: "Stock mutations committed, by direction",
		}, []string{"direction"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_stock_units_total",
			Help: "Units added to or removed from stock, by direction",
		}, []string{"direction"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_stock_mutation_failures_total",
			Help: "Stock mutations rejected, by reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.movements, m.units, m.failures)
	return m
}

func (m *LedgerMetrics) committed(delta int) {
	if m == nil {
		return
	}
	direction, units := "in", delta
	if delta < 0 {
		direction, units = "out", -delta
	}
	m.movements.WithLabelValues(direction).Inc()
	m.units.WithLabelValues(direction).Add(float64(units))
}

func (m *LedgerMetrics) rejected(err error) {
	if m == nil {
		return
	}
	reason := "error"
	switch {
	case errors.Is(err, apperrors.ErrConcurrentModification):
		reason = "conflict"
	case errors.Is(err, apperrors.ErrInsufficientStock):
		reason = "insufficient_stock"
	}
	m.failures.WithLabelValues(reason).Inc()
}
