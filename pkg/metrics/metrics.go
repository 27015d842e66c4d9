package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Medication lookup metrics
	MedicationFetches      *prometheus.CounterVec
	MedicationFetchLatency prometheus.Histogram
	MedicationEnrichments  *prometheus.CounterVec

	// Appointment metrics
	AppointmentTransitions *prometheus.CounterVec
	AppointmentsExpired    prometheus.Counter
	SweeperRuns            *prometheus.CounterVec
}

// New creates all application metrics and registers them with reg. Passing a
// fresh prometheus.NewRegistry() keeps tests isolated from the default registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),

		MedicationFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "medication",
			Name:      "fetch_total",
			Help:      "Medication lookups by outcome (cache, external, error)",
		}, []string{"outcome"}),
		MedicationFetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "medication",
			Name:      "external_fetch_duration_seconds",
			Help:      "Time spent calling the external drug API",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		MedicationEnrichments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "medication",
			Name:      "enrichment_total",
			Help:      "Catalog enrichment attempts by outcome",
		}, []string{"outcome"}),

		AppointmentTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointment",
			Name:      "transitions_total",
			Help:      "Appointment transition attempts by action and result",
		}, []string{"action", "result"}),
		AppointmentsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointment",
			Name:      "expired_total",
			Help:      "Total number of pending appointments canceled by the sweeper",
		}),
		SweeperRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointment",
			Name:      "sweeper_runs_total",
			Help:      "Sweeper executions by status",
		}, []string{"status"}),
	}
}

// NewNop returns metrics registered against a private registry
func NewNop() *Metrics {
	return New("test", prometheus.NewRegistry())
}
