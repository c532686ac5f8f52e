package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/live/accumulator"
	"github.com/edgecomet/loadstats/internal/live/registry"
	"github.com/edgecomet/loadstats/pkg/types"
)

func newTestRegistry() *registry.Registry[accumulator.Stats] {
	reg := registry.New[accumulator.Stats](accumulator.SamplingFactory, zap.NewNop())
	reg.Add("login", &types.Sample{Label: "login", Success: true, Elapsed: 20 * time.Millisecond})
	reg.Add("login", &types.Sample{Label: "login", Success: false, Elapsed: 40 * time.Millisecond})
	return reg
}

func TestPrometheusMetrics_Recording(t *testing.T) {
	promReg := prometheus.NewRegistry()
	pm := NewPrometheusMetricsWithRegistry("loadstats", nil, promReg, zap.NewNop())
	mc := NewMetricsCollectorWith(pm, zap.NewNop())

	mc.RecordSample(true, false)
	mc.RecordSample(true, false)
	mc.RecordSample(false, false)
	mc.RecordSample(false, true)
	mc.IncActiveWorkers()
	mc.IncActiveWorkers()
	mc.DecActiveWorkers()
	mc.RecordSnapshot(time.Millisecond, 3)

	assert.Equal(t, 2.0, mc.SamplesRecorded(ResultSuccess))
	assert.Equal(t, 1.0, mc.SamplesRecorded(ResultFailure))
	assert.Equal(t, 1.0, mc.SamplesRecorded(ResultSkipped))
}

func TestPrometheusMetrics_ThroughputAndPublish(t *testing.T) {
	promReg := prometheus.NewRegistry()
	pm := NewPrometheusMetricsWithRegistry("loadstats", nil, promReg, zap.NewNop())
	mc := NewMetricsCollectorWith(pm, zap.NewNop())

	mc.SetCurrentThroughput(12.5)
	mc.RecordPublish(nil)
	mc.RecordPublish(nil)
	mc.RecordPublish(errors.New("connection refused"))

	assert.Equal(t, 12.5, testutil.ToFloat64(pm.throughput))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.publishesTotal.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.publishesTotal.WithLabelValues(ResultFailure)))
}

func TestPrometheusMetrics_SnapshotCollector(t *testing.T) {
	reg := newTestRegistry()
	promReg := prometheus.NewRegistry()
	NewPrometheusMetricsWithRegistry("loadstats", reg.Snapshot, promReg, zap.NewNop())

	families, err := promReg.Gather()
	require.NoError(t, err)

	byName := make(map[string]int)
	for _, mf := range families {
		byName[mf.GetName()] = len(mf.GetMetric())
		if mf.GetName() == "loadstats_stats_errors_total" {
			for _, m := range mf.GetMetric() {
				assert.Equal(t, 1.0, m.GetCounter().GetValue())
			}
		}
	}

	// login + TOTAL
	assert.Equal(t, 2, byName["loadstats_stats_samples_total"])
	assert.Equal(t, 2, byName["loadstats_stats_error_ratio"])
	assert.Equal(t, 8, byName["loadstats_stats_latency_milliseconds"])
	assert.Equal(t, 2, byName["loadstats_stats_throughput_per_second"])
}

func TestSnapshotCollector_NonUTF8Key(t *testing.T) {
	reg := registry.New[accumulator.Stats](accumulator.SamplingFactory, zap.NewNop())
	reg.Add("Caf\xe9", &types.Sample{Label: "Caf\xe9", Success: true, Elapsed: 5 * time.Millisecond})
	reg.Add("Caf\xea", &types.Sample{Label: "Caf\xea", Success: true, Elapsed: 5 * time.Millisecond})

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(newSnapshotCollector("loadstats", reg.Snapshot))

	require.NotPanics(t, func() {
		_, err := promReg.Gather()
		require.NoError(t, err)
	})

	expected := `
# HELP loadstats_stats_samples_total Samples aggregated per key
# TYPE loadstats_stats_samples_total counter
loadstats_stats_samples_total{key="Caf\\xe9",overall="false"} 1
loadstats_stats_samples_total{key="Caf\\xea",overall="false"} 1
loadstats_stats_samples_total{key="TOTAL",overall="true"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(promReg, strings.NewReader(expected), "loadstats_stats_samples_total"))
}

func TestSnapshotCollector_KeyNamedLikeOverall(t *testing.T) {
	reg := registry.New[accumulator.Stats](accumulator.SamplingFactory, zap.NewNop())
	reg.Add(registry.OverallKey, &types.Sample{Label: registry.OverallKey, Success: true})

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(newSnapshotCollector("loadstats", reg.Snapshot))

	families, err := promReg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "loadstats_stats_samples_total" {
			assert.Len(t, mf.GetMetric(), 2)
		}
	}
}

func TestLabelValue(t *testing.T) {
	assert.Equal(t, "GET /caf\u00e9", labelValue("GET /caf\u00e9"))
	assert.Equal(t, `Caf\xe9`, labelValue("Caf\xe9"))
	assert.Equal(t, `a\xff\xfeb`, labelValue("a\xff\xfeb"))
}

func TestPrometheusMetrics_HTTPEndpoint(t *testing.T) {
	reg := newTestRegistry()
	promReg := prometheus.NewRegistry()
	pm := NewPrometheusMetricsWithRegistry("loadstats", reg.Snapshot, promReg, zap.NewNop())
	pm.RecordSample(ResultSuccess)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/metrics")
	ctx.Request.Header.SetMethod("GET")

	pm.ServeHTTP(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := string(ctx.Response.Body())
	assert.Contains(t, body, "loadstats_live_samples_total")
	assert.Contains(t, body, `loadstats_stats_samples_total{key="login",overall="false"} 2`)
	assert.Contains(t, body, `loadstats_stats_samples_total{key="TOTAL",overall="true"} 2`)
	assert.Contains(t, body, "# HELP")
}
