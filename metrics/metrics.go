// Package metrics exposes Prometheus counters for workflow activity.
package metrics

import (
	"Gin_postgres_redis_equipment_tool/lifecycle"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equipment",
		Name:      "transitions_total",
		Help:      "Committed workflow operations by entity and action.",
	}, []string{"entity", "action"})

	DomainErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equipment",
		Name:      "domain_errors_total",
		Help:      "Rejected workflow operations by error kind.",
	}, []string{"kind"})

	SweepResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equipment",
		Name:      "sweep_loans_total",
		Help:      "Loans touched by the overdue sweep, by outcome.",
	}, []string{"outcome"})
)

// Observe counts a finished operation: a transition on success, the error
// kind on a domain error. Infrastructure errors are not counted.
func Observe(entity, action string, err error) {
	if err == nil {
		Transitions.WithLabelValues(entity, action).Inc()
		return
	}
	if k := lifecycle.KindOf(err); k != 0 {
		DomainErrors.WithLabelValues(k.String()).Inc()
	}
}
