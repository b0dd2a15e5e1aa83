package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAIRequest(OutcomeSuccess, 300*time.Millisecond)
	m.ObserveAIRequest(OutcomeRateLimited, time.Second)
	m.ObserveAIRequest(OutcomeSuccess, 100*time.Millisecond)
	m.IncRetry()
	m.IncDroppedToken()
	m.IncCacheLookup(CacheHit, 3)
	m.IncCacheLookup(CacheMiss, 0)
	m.IncCorpusFetch(CorpusFailed)
	m.AddItems("classified", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AIRequests.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AIRequests.WithLabelValues(OutcomeRateLimited)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AIRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedTokens))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorpusFetches.WithLabelValues(CorpusFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ItemsClassified.WithLabelValues("classified")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AIRequestLatency))

	// Zero counts do not create a series.
	assert.Equal(t, 1, testutil.CollectAndCount(m.CacheLookups))

	n, err := testutil.GatherAndCount(reg, "holidarr_ai_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAIRequest(OutcomeError, time.Second)
		m.IncRetry()
		m.IncDroppedToken()
		m.IncCacheLookup(CacheHit, 1)
		m.IncCorpusFetch(CorpusFetched)
		m.AddItems("failed", 1)
	})
}
