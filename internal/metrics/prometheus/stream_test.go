package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-diskstream/internal/metrics"
)

func TestNew_NilRegistry(t *testing.T) {
	assert.Nil(t, New(nil))
}

func TestStreamMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	metrics.RecordUnderrun(m)
	metrics.RecordUnderrun(m)
	metrics.RecordStaleDiscard(m)
	metrics.RecordCacheFallback(m, 3)
	metrics.RecordSeek(m, true)
	metrics.RecordSeek(m, false)
	metrics.RecordSeek(m, false)
	metrics.RecordDecodeError(m)
	metrics.AddHeapBytes(m, 4096)
	metrics.AddHeapBytes(m, 1024)
	metrics.AddHeapBytes(m, -512)

	sm, ok := m.(*streamMetrics)
	require.True(t, ok)

	assert.InDelta(t, 2, testutil.ToFloat64(sm.underruns), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sm.staleDiscards), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(sm.cacheFallbacks), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sm.seeksCached), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(sm.seeksUncached), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sm.decodeErrors), 0)
	assert.InDelta(t, 4608, testutil.ToFloat64(sm.heapBytes), 0)
}

func TestStreamMetrics_FillHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFill(metrics.FillBlock, metrics.SourceDecoder, 2*time.Millisecond)
	m.ObserveFill(metrics.FillCache, metrics.SourceDecoder, 40*time.Millisecond)
	metrics.ObserveFill(m, metrics.FillBlock, metrics.SourceCache, time.Now())

	sm, ok := m.(*streamMetrics)
	require.True(t, ok)
	assert.Equal(t, 3, testutil.CollectAndCount(sm.fillDuration))
}

func TestStreamMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"diskstream_underruns_total",
		"diskstream_stale_discards_total",
		"diskstream_cache_fallbacks_total",
		"diskstream_seeks_total",
		"diskstream_decode_errors_total",
		"diskstream_heap_bytes",
	} {
		assert.True(t, names[want], "missing %s", want)
	}
}
