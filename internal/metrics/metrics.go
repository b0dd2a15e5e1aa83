// Package metrics holds the Prometheus collectors for classification.
//
// All methods are safe on a nil *Metrics, so components can run without
// instrumentation in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "holidarr"

// AI request outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeContentFilter = "content_filtered"
	OutcomeRateLimited   = "rate_limited"
	OutcomeError         = "error"
)

// Cache and corpus lookup results.
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheError      = "error"
	CorpusFromCache = "cache"
	CorpusFetched   = "fetched"
	CorpusFailed    = "failed"
)

// Metrics holds classification metrics.
type Metrics struct {
	AIRequests       *prometheus.CounterVec
	AIRetries        prometheus.Counter
	AIRequestLatency prometheus.Histogram
	DroppedTokens    prometheus.Counter
	CacheLookups     *prometheus.CounterVec
	CorpusFetches    *prometheus.CounterVec
	ItemsClassified  *prometheus.CounterVec
}

// New creates and registers the collectors with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Classification backend calls by outcome.",
		}, []string{"outcome"}),
		AIRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "retries_total",
			Help:      "Backend calls retried after a rate-limit response.",
		}),
		AIRequestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "Duration of classification backend calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		DroppedTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "dropped_tokens_total",
			Help:      "Holiday tokens returned by the backend that are not recognized.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Classification cache lookups by result.",
		}, []string{"result"}),
		CorpusFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "fetches_total",
			Help:      "Title corpus lookups per holiday by source.",
		}, []string{"result"}),
		ItemsClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "items_total",
			Help:      "Items processed by bulk classification runs.",
		}, []string{"state"}),
	}

	reg.MustRegister(
		m.AIRequests,
		m.AIRetries,
		m.AIRequestLatency,
		m.DroppedTokens,
		m.CacheLookups,
		m.CorpusFetches,
		m.ItemsClassified,
	)

	return m
}

// ObserveAIRequest records one backend call.
func (m *Metrics) ObserveAIRequest(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AIRequests.WithLabelValues(outcome).Inc()
	m.AIRequestLatency.Observe(elapsed.Seconds())
}

// IncRetry counts a rate-limit retry.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.AIRetries.Inc()
}

// IncDroppedToken counts an unrecognized holiday token.
func (m *Metrics) IncDroppedToken() {
	if m == nil {
		return
	}
	m.DroppedTokens.Inc()
}

// IncCacheLookup counts a classification cache lookup.
func (m *Metrics) IncCacheLookup(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheLookups.WithLabelValues(result).Add(float64(n))
}

// IncCorpusFetch counts a per-holiday corpus lookup.
func (m *Metrics) IncCorpusFetch(result string) {
	if m == nil {
		return
	}
	m.CorpusFetches.WithLabelValues(result).Inc()
}

// AddItems counts orchestrator items by state (cached, classified, failed).
func (m *Metrics) AddItems(state string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsClassified.WithLabelValues(state).Add(float64(n))
}
