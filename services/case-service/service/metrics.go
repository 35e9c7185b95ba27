package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts domain outcomes. Request-level metrics live in pkg/middleware.
type Metrics struct {
	registrations   *prometheus.CounterVec
	logins          *prometheus.CounterVec
	casesRegistered *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	eventFailures   prometheus.Counter
}

// NewMetrics registers the collectors on reg. A nil reg builds unregistered
// collectors, which is what tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_registrations_total",
				Help: "Identity registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		casesRegistered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cases_registered_total",
				Help: "Cases registered by category",
			},
			[]string{"category"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "case_transitions_total",
				Help: "Admin case field updates by field and new value",
			},
			[]string{"field", "value"},
		),
		eventFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "case_event_publish_failures_total",
				Help: "Case events that could not be published",
			},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
