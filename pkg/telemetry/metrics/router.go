package metrics

import "github.com/prometheus/client_golang/prometheus"

// Router tracks routepilot_router_attempts_total{model,reason} and
// routepilot_router_fallbacks_total, per SPEC_FULL.md §4.1.
type Router struct {
	attemptsTotal  *prometheus.CounterVec
	fallbacksTotal prometheus.Counter
}

func newRouter(registry *prometheus.Registry) *Router {
	r := &Router{
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "routepilot",
				Subsystem: "router",
				Name:      "attempts_total",
				Help:      "Route attempts by model and terminal reason (ok, stall, rate_limit, 5xx, http_<code>, error).",
			},
			[]string{"model", "reason"},
		),
		fallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "routepilot",
				Subsystem: "router",
				Name:      "fallbacks_total",
				Help:      "Total fallback transitions across every route ladder walk.",
			},
		),
	}
	registry.MustRegister(r.attemptsTotal, r.fallbacksTotal)
	return r
}

// RecordAttempt records one attempt's terminal reason. reason is "ok" for a
// successful attempt.
func (r *Router) RecordAttempt(model, reason string) {
	if r == nil {
		return
	}
	r.attemptsTotal.WithLabelValues(model, reason).Inc()
}

// RecordFallback records one fallback transition.
func (r *Router) RecordFallback() {
	if r == nil {
		return
	}
	r.fallbacksTotal.Inc()
}
