package chain

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report chain execution
// activity.
type Metrics struct {
	stepDuration   *prometheus.HistogramVec
	chainAborts    *prometheus.CounterVec
	clarifications prometheus.Counter
	chainsActive   prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// defaultMetrics returns the package-level metrics instance registered
// with the global Prometheus registry. The collectors are created only
// once so multiple executors (tests, parallel servers) do not trip
// duplicate registration panics.
func defaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs a Metrics instance using the provided
// registerer. Pass a fresh registry in tests when unique metric names are
// needed. Registration errors other than AlreadyRegistered panic, which
// mirrors the promauto helpers and surfaces configuration bugs early.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	stepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "courier",
			Subsystem: "chain",
			Name:      "step_duration_seconds",
			Help:      "Duration of each tool step execution.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool", "status"},
	)
	chainAborts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "chain",
			Name:      "aborts_total",
			Help:      "Chains stopped before completing every planned step.",
		},
		[]string{"reason"},
	)
	clarifications := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "chain",
			Name:      "clarifications_total",
			Help:      "Chains paused waiting for a user clarification.",
		},
	)
	chainsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "courier",
			Subsystem: "chain",
			Name:      "active",
			Help:      "Number of chains currently executing.",
		},
	)

	collectors := []prometheus.Collector{stepDuration, chainAborts, clarifications, chainsActive}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector.(type) {
				case *prometheus.HistogramVec:
					stepDuration = already.ExistingCollector.(*prometheus.HistogramVec)
				case *prometheus.CounterVec:
					chainAborts = already.ExistingCollector.(*prometheus.CounterVec)
				case prometheus.Gauge:
					chainsActive = already.ExistingCollector.(prometheus.Gauge)
				case prometheus.Counter:
					clarifications = already.ExistingCollector.(prometheus.Counter)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		stepDuration:   stepDuration,
		chainAborts:    chainAborts,
		clarifications: clarifications,
		chainsActive:   chainsActive,
	}
}

// ObserveStepDuration records the time spent in one tool step.
func (m *Metrics) ObserveStepDuration(tool string, status string, duration time.Duration) {
	if m == nil || m.stepDuration == nil {
		return
	}
	m.stepDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
}

// IncChainAbort counts a chain stopped early for the given reason.
func (m *Metrics) IncChainAbort(reason string) {
	if m == nil || m.chainAborts == nil {
		return
	}
	m.chainAborts.WithLabelValues(reason).Inc()
}

// IncClarification counts a chain paused for user input.
func (m *Metrics) IncClarification() {
	if m == nil || m.clarifications == nil {
		return
	}
	m.clarifications.Inc()
}

// IncActiveChains marks a chain as running.
func (m *Metrics) IncActiveChains() {
	if m == nil || m.chainsActive == nil {
		return
	}
	m.chainsActive.Inc()
}

// DecActiveChains marks a chain as finished.
func (m *Metrics) DecActiveChains() {
	if m == nil || m.chainsActive == nil {
		return
	}
	m.chainsActive.Dec()
}
