// Package metrics holds the Prometheus collectors of the key service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const subsystem = "apikeys"

// Metrics owns its own registry so tests can build as many as they like.
type Metrics struct {
	validationTotal    *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	cacheRequests      *prometheus.CounterVec
	usageEvents        *prometheus.CounterVec
	lifecycle          *prometheus.CounterVec
	sweepInvalidated   prometheus.Counter
	breakerState       *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates the collectors under namespace. Go runtime and process
// collectors are registered too.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "aussiebroadwan"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.validationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "validation_total",
			Help:      "API key validation attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.validationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "validation_duration_seconds",
			Help:      "API key validation latency in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"cache"},
	)

	m.cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by category and result",
		},
		[]string{"category", "result"},
	)

	m.usageEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "usage_events_total",
			Help:      "Usage tracking events by result",
		},
		[]string{"result"},
	)

	m.lifecycle = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lifecycle_events_total",
			Help:      "Key lifecycle events by type",
		},
		[]string{"event"},
	)

	m.sweepInvalidated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "expiry_sweep_invalidated_total",
			Help:      "Cache invalidations issued by the expiry sweep",
		},
	)

	m.breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_breaker_state",
			Help:      "Cache circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	m.registry.MustRegister(
		m.validationTotal,
		m.validationDuration,
		m.cacheRequests,
		m.usageEvents,
		m.lifecycle,
		m.sweepInvalidated,
		m.breakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Init pre-creates the common label sets so they show up at zero.
func (m *Metrics) Init() {
	for _, outcome := range []string{
		"valid", "malformed_key", "key_not_found", "key_disabled",
		"key_expired", "invalid_secret", "repository_error",
	} {
		m.validationTotal.WithLabelValues(outcome)
	}
	for _, category := range []string{"validation", "scopes", "listing"} {
		for _, result := range []string{"hit", "miss", "error"} {
			m.cacheRequests.WithLabelValues(category, result)
		}
	}
	for _, result := range []string{"recorded", "dropped", "failed"} {
		m.usageEvents.WithLabelValues(result)
	}
}

func (m *Metrics) RecordValidation(outcome string, cacheHit bool, d time.Duration) {
	if m == nil {
		return
	}
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.validationTotal.WithLabelValues(outcome).Inc()
	m.validationDuration.WithLabelValues(cache).Observe(d.Seconds())
}

func (m *Metrics) RecordCache(category, result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(category, result).Inc()
}

func (m *Metrics) RecordUsage(result string) {
	if m == nil {
		return
	}
	m.usageEvents.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordLifecycle(event string) {
	if m == nil {
		return
	}
	m.lifecycle.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordSweep(invalidated int) {
	if m == nil {
		return
	}
	m.sweepInvalidated.Add(float64(invalidated))
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// CacheRequests exposes the cache counter for assertions.
func (m *Metrics) CacheRequests() *prometheus.CounterVec { return m.cacheRequests }

// UsageEvents exposes the usage counter for assertions.
func (m *Metrics) UsageEvents() *prometheus.CounterVec { return m.usageEvents }

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
