// Package metrics defines the custom Prometheus metrics of the booking API.
// It is the single source of truth for metric names, labels, and help strings.
//
// Metrics are registered on the registerer passed to New, so every router
// instance (and every test) can own an isolated registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "booking"

// Metrics holds the domain counters incremented by the HTTP handlers.
type Metrics struct {
	// BookingsCreatedTotal counts newly created booking requests.
	// Label:
	//   - replayed: "true" when an Idempotency-Key returned an earlier request
	BookingsCreatedTotal *prometheus.CounterVec

	// DecisionsTotal counts applied reviewer decisions.
	// Labels:
	//   - stage: "manager" or "admin"
	//   - decision: "approve" or "reject"
	DecisionsTotal *prometheus.CounterVec

	// DecisionErrorsTotal counts rejected decision attempts.
	// Labels:
	//   - stage: "manager" or "admin"
	//   - reason: "invalid_transition", "not_found", "invalid_action", "forbidden", "internal"
	DecisionErrorsTotal *prometheus.CounterVec

	// AuthAttemptsTotal counts register and login outcomes.
	// Labels:
	//   - operation: "register" or "login"
	//   - result: "success", "invalid_credentials", "invalid_role", "duplicate", "error"
	AuthAttemptsTotal *prometheus.CounterVec
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BookingsCreatedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_created_total",
				Help:      "Total number of booking requests created.",
			},
			[]string{"replayed"},
		),
		DecisionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Total number of reviewer decisions applied, by stage and decision.",
			},
			[]string{"stage", "decision"},
		),
		DecisionErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decision_errors_total",
				Help:      "Total number of reviewer decisions that were refused.",
			},
			[]string{"stage", "reason"},
		),
		AuthAttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Total number of register and login attempts, by result.",
			},
			[]string{"operation", "result"},
		),
	}
}
