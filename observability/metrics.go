package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	hostMetricsOnce sync.Once
	hostRegistry    *HostMetrics

	indexerMetricsOnce sync.Once
	indexerRegistry    *IndexerMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wld",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wld",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "wld",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wld",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by the rate limiter.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// ModuleOf returns the namespace of a JSON-RPC method ("donation" for
// "donation_get").
func ModuleOf(method string) string {
	module, _, found := strings.Cut(method, "_")
	if !found || module == "" {
		return "unknown"
	}
	return module
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	module := ModuleOf(method)
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// HostMetrics tracks contract calls executed by the node.
type HostMetrics struct {
	calls     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	writes    prometheus.Histogram
	published *prometheus.CounterVec
}

// Host returns the lazily-initialised host metrics registry.
func Host() *HostMetrics {
	hostMetricsOnce.Do(func() {
		hostRegistry = &HostMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wld",
				Subsystem: "host",
				Name:      "calls_total",
				Help:      "Contract calls segmented by method and outcome (committed or aborted).",
			}, []string{"method", "outcome"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "wld",
				Subsystem: "host",
				Name:      "call_duration_seconds",
				Help:      "Time spent executing a contract call including the commit.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
			}, []string{"method"}),
			writes: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "wld",
				Subsystem: "host",
				Name:      "committed_keys",
				Help:      "Number of state keys flushed per committed call.",
				Buckets:   []float64{1, 2, 3, 4, 6, 8, 16, 32},
			}),
			published: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wld",
				Subsystem: "host",
				Name:      "events_published_total",
				Help:      "Events published to subscribers after commit, by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(hostRegistry.calls, hostRegistry.duration, hostRegistry.writes, hostRegistry.published)
	})
	return hostRegistry
}

// ObserveCall records a finished call.
func (m *HostMetrics) ObserveCall(method string, committed bool, keys int, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "aborted"
	if committed {
		outcome = "committed"
		m.writes.Observe(float64(keys))
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordEvent increments the published counter for eventType.
func (m *HostMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(eventType).Inc()
}

// IndexerMetrics tracks the off-chain donation index.
type IndexerMetrics struct {
	indexed  prometheus.Counter
	failures prometheus.Counter
	lastID   prometheus.Gauge
}

// Indexer returns the lazily-initialised indexer metrics registry.
func Indexer() *IndexerMetrics {
	indexerMetricsOnce.Do(func() {
		indexerRegistry = &IndexerMetrics{
			indexed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "wld",
				Subsystem: "indexer",
				Name:      "donations_indexed_total",
				Help:      "Donations written to the index.",
			}),
			failures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "wld",
				Subsystem: "indexer",
				Name:      "failures_total",
				Help:      "Events the indexer could not persist.",
			}),
			lastID: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "wld",
				Subsystem: "indexer",
				Name:      "last_donation_id",
				Help:      "Identifier of the most recently indexed donation.",
			}),
		}
		prometheus.MustRegister(indexerRegistry.indexed, indexerRegistry.failures, indexerRegistry.lastID)
	})
	return indexerRegistry
}

func (m *IndexerMetrics) RecordIndexed(id uint64) {
	if m == nil {
		return
	}
	m.indexed.Inc()
	m.lastID.Set(float64(id))
}

func (m *IndexerMetrics) RecordFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
