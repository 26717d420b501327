package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every sub-metrics type RoutePilot's core components
// accept. All fields are nil-safe: a zero-value *Metrics's fields are all
// nil, and every Record* method on Router/Quota/Receipts tolerates a nil
// receiver.
type Metrics struct {
	Router   *Router
	Quota    *Quota
	Receipts *Receipts
}

// New registers RoutePilot's counters against registry and returns the
// bundle. If registry is nil, a fresh prometheus.Registry is created so
// callers and tests never need one just to construct a Metrics.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Metrics{
		Router:   newRouter(registry),
		Quota:    newQuota(registry),
		Receipts: newReceipts(registry),
	}
}
