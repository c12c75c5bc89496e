package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the coordination server.
type Metrics struct {
	CoordinationsCreated  prometheus.Counter
	CoordinationsTerminal *prometheus.CounterVec
	ProofVerifications    *prometheus.CounterVec
	RevealEvents          *prometheus.CounterVec
	EmergencyOverrides    *prometheus.CounterVec
	DispatchDuration      prometheus.Histogram
	RequestDuration       *prometheus.HistogramVec
}

// New creates all metrics on the default Prometheus registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics on a caller-supplied registerer.
// Tests pass a fresh registry to avoid duplicate-registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CoordinationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "veil_coordinations_created_total",
			Help: "Total number of coordinations created",
		}),
		CoordinationsTerminal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_coordinations_terminal_total",
			Help: "Coordinations reaching a terminal state, by outcome",
		}, []string{"outcome"}),
		ProofVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_proof_verifications_total",
			Help: "Capability proof verification attempts, by result",
		}, []string{"result"}),
		RevealEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_reveal_events_total",
			Help: "Reveal events appended, by resulting disclosure level",
		}, []string{"level"}),
		EmergencyOverrides: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_emergency_overrides_total",
			Help: "Emergency override triggers, by emergency type",
		}, []string{"type"}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "veil_provider_dispatch_duration_seconds",
			Help:    "Latency of provider dispatch attempts",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veil_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
