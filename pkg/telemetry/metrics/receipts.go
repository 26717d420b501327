package metrics

import "github.com/prometheus/client_golang/prometheus"

// Receipts tracks routepilot_receipts_written_total and
// routepilot_receipts_cost_usd_total.
type Receipts struct {
	writtenTotal  prometheus.Counter
	costUSDTotal  prometheus.Counter
}

func newReceipts(registry *prometheus.Registry) *Receipts {
	r := &Receipts{
		writtenTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "routepilot",
				Subsystem: "receipts",
				Name:      "written_total",
				Help:      "Total receipts persisted.",
			},
		),
		costUSDTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "routepilot",
				Subsystem: "receipts",
				Name:      "cost_usd_total",
				Help:      "Cumulative estimated cost, in USD, across every persisted receipt.",
			},
		),
	}
	registry.MustRegister(r.writtenTotal, r.costUSDTotal)
	return r
}

// RecordWrite records one persisted receipt and its estimated cost.
func (r *Receipts) RecordWrite(costUSD float64) {
	if r == nil {
		return
	}
	r.writtenTotal.Inc()
	if costUSD > 0 {
		r.costUSDTotal.Add(costUSD)
	}
}
