// Package metrics exposes the Prometheus counters for forecast runs and cost projections.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "watercast"

// Failure kinds used as the kind label of FailuresByKind
const (
	KindSchema    = "schema"
	KindContract  = "contract"
	KindInference = "inference"
	KindOther     = "other"
)

// Metrics holds all Prometheus collectors for the system
type Metrics struct {
	Runs            *prometheus.CounterVec
	FailuresByKind  *prometheus.CounterVec
	Steps           prometheus.Counter
	SanitizedValues *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	Projections     prometheus.Counter
	ShortageDays    prometheus.Counter
	Requests        *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. A nil registerer uses the default
// Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_runs_total",
				Help:      "Number of forecast runs by horizon",
			},
			[]string{"horizon"},
		),
		FailuresByKind: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_failures_total",
				Help:      "Number of aborted forecast runs by failure kind",
			},
			[]string{"kind"},
		),
		Steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_steps_total",
			Help:      "Number of completed forecast steps",
		}),
		SanitizedValues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sanitized_values_total",
				Help:      "Number of non-finite or missing values forced to 0 by column",
			},
			[]string{"column"},
		),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_run_duration_seconds",
			Help:      "Wall time of a full forecast run",
			Buckets:   prometheus.DefBuckets,
		}),
		Projections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_projections_total",
			Help:      "Number of cost projections computed",
		}),
		ShortageDays: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shortage_priced_days_total",
			Help:      "Number of projected days priced with the shortage multiplier",
		}),
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Number of http requests by route",
			},
			[]string{"route"},
		),
	}
}
