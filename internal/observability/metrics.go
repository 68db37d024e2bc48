// Package observability exposes negotiation outcomes as Prometheus metrics.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"netneg/internal/negotiation"
)

// Outcome label values of netneg_negotiations_total.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus registry and the negotiation meters.
// It implements negotiation.Observer.
type Metrics struct {
	Registry           *prometheus.Registry
	Negotiations       *prometheus.CounterVec
	Failures           *prometheus.CounterVec
	ComponentsAgreed   prometheus.Histogram
	NegotiationSeconds prometheus.Histogram
}

var _ negotiation.Observer = (*Metrics)(nil)

// NewMetrics creates a custom registry with the negotiation metrics plus the
// standard Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	negotiations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netneg_negotiations_total",
		Help: "Total number of component negotiations by outcome.",
	}, []string{"outcome"})

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netneg_negotiation_failures_total",
		Help: "Total number of rejected components by failure code.",
	}, []string{"code"})

	agreed := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netneg_negotiated_components",
		Help:    "Number of components agreed per successful negotiation.",
		Buckets: prometheus.LinearBuckets(0, 4, 8),
	})

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netneg_negotiation_duration_seconds",
		Help:    "Time spent reconciling two advertisements.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	})

	reg.MustRegister(
		negotiations, failures, agreed, duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry:           reg,
		Negotiations:       negotiations,
		Failures:           failures,
		ComponentsAgreed:   agreed,
		NegotiationSeconds: duration,
	}
}

// ObserveNegotiation records one completed negotiation.
func (m *Metrics) ObserveNegotiation(result *negotiation.Result, elapsed time.Duration) {
	m.NegotiationSeconds.Observe(elapsed.Seconds())

	if result.Success {
		m.Negotiations.WithLabelValues(OutcomeSuccess).Inc()
		m.ComponentsAgreed.Observe(float64(len(result.Components)))
		return
	}

	m.Negotiations.WithLabelValues(OutcomeFailure).Inc()
	for _, f := range result.Failures {
		m.Failures.WithLabelValues(string(f.Code)).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
