package metrics

import "github.com/prometheus/client_golang/prometheus"

// Quota tracks routepilot_quota_rejections_total{kind}.
type Quota struct {
	rejectionsTotal *prometheus.CounterVec
}

func newQuota(registry *prometheus.Registry) *Quota {
	q := &Quota{
		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "routepilot",
				Subsystem: "quota",
				Name:      "rejections_total",
				Help:      "Quota rejections by kind (rpm, daily).",
			},
			[]string{"kind"},
		),
	}
	registry.MustRegister(q.rejectionsTotal)
	return q
}

// RecordRejection records one rejected call for the given quota kind.
func (q *Quota) RecordRejection(kind string) {
	if q == nil {
		return
	}
	q.rejectionsTotal.WithLabelValues(kind).Inc()
}
