package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPipelineRuns(t *testing.T) {
	before := testutil.ToFloat64(PipelineRuns.WithLabelValues("cost-low"))
	PipelineRuns.WithLabelValues("cost-low").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PipelineRuns.WithLabelValues("cost-low")))
}

func TestCacheCounters(t *testing.T) {
	hits := testutil.ToFloat64(CacheHits.WithLabelValues("test"))
	misses := testutil.ToFloat64(CacheMisses.WithLabelValues("test"))

	CacheHits.WithLabelValues("test").Inc()
	CacheMisses.WithLabelValues("test").Add(2)

	assert.Equal(t, hits+1, testutil.ToFloat64(CacheHits.WithLabelValues("test")))
	assert.Equal(t, misses+2, testutil.ToFloat64(CacheMisses.WithLabelValues("test")))
}
