// Package metrics holds the prometheus collectors of the POS backend.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ShiftsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "waffle_pos",
		Name:      "shifts_opened_total",
		Help:      "Cash-register shifts opened.",
	})

	ShiftsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waffle_pos",
		Name:      "shifts_closed_total",
		Help:      "Cash-register shifts closed, by reconciliation outcome.",
	}, []string{"outcome"})

	LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waffle_pos",
		Name:      "ledger_transactions_total",
		Help:      "Ledger entries recorded, by kind and payment method.",
	}, []string{"kind", "method"})

	UntrackedSales = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waffle_pos",
		Name:      "untracked_method_sales_total",
		Help:      "Sales whose payment method is outside the tracked breakdown.",
	}, []string{"method"})

	CashVariance = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "waffle_pos",
		Name:      "cash_variance",
		Help:      "Counted minus expected cash at close.",
		Buckets:   []float64{-50000, -10000, -5000, -1000, -100, 0, 100, 1000, 5000, 10000, 50000},
	})

	StaleOpenShifts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "waffle_pos",
		Name:      "stale_open_shifts",
		Help:      "Open shifts older than the stale threshold at the last sweep.",
	})
)

// Handler serves the default registry through fiber.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
