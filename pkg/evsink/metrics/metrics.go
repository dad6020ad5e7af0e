// Package metrics provides a Prometheus-backed evsink.Observer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/strongdm/event-sink/pkg/evsink"
)

// Observer counts write attempts, event outcomes and sink state.
type Observer struct {
	// Attempts tracks write attempts per collection and result
	Attempts *prometheus.CounterVec

	// Outcomes tracks handled events per collection and outcome
	Outcomes *prometheus.CounterVec

	// Disabled is 1 once the sink has disabled itself
	Disabled prometheus.Gauge

	// DisabledTotal tracks disable transitions per error kind
	DisabledTotal *prometheus.CounterVec
}

var _ evsink.Observer = (*Observer)(nil)

// NewObserver registers the sink metrics with reg. A nil reg uses the
// default registerer.
func NewObserver(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Observer{
		Attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evsink_write_attempts_total",
				Help: "Total number of document write attempts",
			},
			[]string{"collection", "result"},
		),
		Outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evsink_events_total",
				Help: "Total number of handled events by outcome",
			},
			[]string{"collection", "outcome"},
		),
		Disabled: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "evsink_disabled",
				Help: "Whether the sink has disabled itself",
			},
		),
		DisabledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evsink_disabled_total",
				Help: "Total number of sink disable transitions by error kind",
			},
			[]string{"kind"},
		),
	}
}

// ObserveAttempt counts an attempt under "ok" or the classified error kind.
func (o *Observer) ObserveAttempt(collection string, err error) {
	result := "ok"
	if err != nil {
		result = evsink.Classify(err).String()
	}
	o.Attempts.WithLabelValues(collection, result).Inc()
}

func (o *Observer) ObserveOutcome(collection string, outcome evsink.Outcome) {
	o.Outcomes.WithLabelValues(collection, outcome.String()).Inc()
}

func (o *Observer) ObserveDisabled(kind evsink.ErrorKind) {
	o.Disabled.Set(1)
	o.DisabledTotal.WithLabelValues(kind.String()).Inc()
}
