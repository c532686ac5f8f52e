package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/common/configtypes"
	"github.com/edgecomet/loadstats/internal/live/accumulator"
	"github.com/edgecomet/loadstats/internal/live/registry"
	"github.com/edgecomet/loadstats/internal/stats/classify"
	"github.com/edgecomet/loadstats/internal/stats/filter"
	"github.com/edgecomet/loadstats/internal/stats/table"
	"github.com/edgecomet/loadstats/pkg/types"
)

type fakeMetrics struct {
	mu         sync.Mutex
	success    int
	failure    int
	skipped    int
	active     int
	maxActive  int
	snapshots  int
	publishes  int
	publishErr int
	throughput []float64
}

func (m *fakeMetrics) RecordSample(success, skipped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case skipped:
		m.skipped++
	case success:
		m.success++
	default:
		m.failure++
	}
}

func (m *fakeMetrics) IncActiveWorkers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
}

func (m *fakeMetrics) DecActiveWorkers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
}

func (m *fakeMetrics) RecordSnapshot(time.Duration, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots++
}

func (m *fakeMetrics) SetCurrentThroughput(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.throughput = append(m.throughput, v)
}

func (m *fakeMetrics) RecordPublish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishes++
	if err != nil {
		m.publishErr++
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	runIDs []string
	last   *table.Table
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, runID string, t *table.Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runIDs = append(p.runIDs, runID)
	p.last = t
	return p.err
}

func liveConfig(workers int) configtypes.LiveConfig {
	return configtypes.LiveConfig{
		KeyMode:          registry.KeyModeLabel,
		Workers:          workers,
		SnapshotInterval: types.Duration(time.Hour),
		Granularity:      types.Duration(time.Hour),
		TopErrors:        5,
	}
}

func newRunner(t *testing.T, cfg configtypes.LiveConfig, opts ...Option) (*Runner, *registry.Registry[accumulator.Stats]) {
	t.Helper()
	stats := registry.New[accumulator.Stats](accumulator.SamplingFactory, zap.NewNop())
	r, err := New(cfg, classify.DefaultOptions(), stats, zap.NewNop(), opts...)
	require.NoError(t, err)
	return r, stats
}

func feed(samples []*types.Sample) <-chan *types.Sample {
	ch := make(chan *types.Sample, len(samples))
	for _, s := range samples {
		ch <- s
	}
	close(ch)
	return ch
}

func TestRunner_Run(t *testing.T) {
	m := &fakeMetrics{}
	pub := &fakePublisher{}
	r, stats := newRunner(t, liveConfig(8), WithMetrics(m), WithPublisher(pub))

	var samples []*types.Sample
	for i := 0; i < 1000; i++ {
		s := &types.Sample{Label: fmt.Sprintf("op-%d", i%5), Success: i%10 != 0, ResponseCode: "200"}
		if !s.Success {
			s.ResponseCode = "503"
			s.ResponseMessage = "Service Unavailable"
		}
		samples = append(samples, s)
	}
	samples = append(samples, &types.Sample{Label: "tx", GroupMarker: true, EmptyGroup: true})

	final, err := r.Run(context.Background(), feed(samples))
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.True(t, final.Final)
	assert.Equal(t, stats.RunID(), final.RunID)

	// 5 keys + overall, no key for the empty group
	require.Len(t, final.Stats.Rows, 6)
	var sum int64
	for _, row := range final.Stats.Rows[:5] {
		sum += row[1].Int()
	}
	overall := final.Stats.Rows[5]
	assert.Equal(t, registry.OverallKey, overall[0].Str())
	assert.EqualValues(t, 1000, overall[1].Int())
	assert.Equal(t, sum, overall[1].Int())

	errs := r.TopErrors().Overall()
	assert.EqualValues(t, 100, errs.Errors)
	require.Len(t, errs.Top, 1)
	assert.Equal(t, "503/Service Unavailable", errs.Top[0].Classification)

	assert.Equal(t, 900, m.success)
	assert.Equal(t, 100, m.failure)
	assert.Equal(t, 1, m.skipped)
	assert.Equal(t, 0, m.active)
	assert.LessOrEqual(t, m.maxActive, 8)
	assert.Equal(t, 1, m.snapshots)
	assert.Equal(t, 1, m.publishes)

	require.Len(t, pub.runIDs, 1)
	assert.Equal(t, final.RunID, pub.runIDs[0])
	assert.Same(t, final.Stats, pub.last)
}

func TestRunner_PeriodicSnapshots(t *testing.T) {
	cfg := liveConfig(2)
	cfg.SnapshotInterval = types.Duration(10 * time.Millisecond)
	cfg.Granularity = types.Duration(5 * time.Millisecond)

	m := &fakeMetrics{}
	var mu sync.Mutex
	var snaps []*Snapshot
	r, _ := newRunner(t, cfg, WithMetrics(m), WithSnapshotHook(func(s *Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	}))

	ch := make(chan *types.Sample)
	go func() {
		for i := 0; i < 20; i++ {
			ch <- &types.Sample{Label: "poll", Success: true}
			time.Sleep(5 * time.Millisecond)
		}
		close(ch)
	}()

	final, err := r.Run(context.Background(), ch)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(snaps), 2)
	assert.Same(t, final, snaps[len(snaps)-1])
	for _, s := range snaps[:len(snaps)-1] {
		assert.False(t, s.Final)
	}
	assert.EqualValues(t, 20, final.Stats.Rows[len(final.Stats.Rows)-1][1].Int())

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.NotEmpty(t, m.throughput)
}

func TestRunner_Cancelled(t *testing.T) {
	r, _ := newRunner(t, liveConfig(2))

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan *types.Sample)
	go func() {
		ch <- &types.Sample{Label: "a", Success: true}
		cancel()
	}()

	final, err := r.Run(ctx, ch)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, final)
	assert.True(t, final.Final)
}

func TestRunner_PublishFailureIsNotFatal(t *testing.T) {
	m := &fakeMetrics{}
	r, _ := newRunner(t, liveConfig(1), WithMetrics(m), WithPublisher(&fakePublisher{err: errors.New("redis down")}))

	_, err := r.Run(context.Background(), feed([]*types.Sample{{Label: "a", Success: true}}))
	require.NoError(t, err)
	assert.Equal(t, 1, m.publishErr)
}

func TestRunner_GroupLabelKeys(t *testing.T) {
	cfg := liveConfig(1)
	cfg.KeyMode = registry.KeyModeGroupLabel
	r, stats := newRunner(t, cfg)

	_, err := r.Run(context.Background(), feed([]*types.Sample{
		{Label: "GET /", ThreadName: "Browsers 1-1", Success: true},
		{Label: "GET /", ThreadName: "Bots 1-4", Success: true},
	}))
	require.NoError(t, err)

	rows := stats.Snapshot()
	require.Len(t, rows, 3)
	assert.Equal(t, "Browsers:GET /", rows[0].Key)
	assert.Equal(t, "Bots:GET /", rows[1].Key)
}

func TestRunner_WithFilter(t *testing.T) {
	f, err := filter.New(nil, []string{"*health*"})
	require.NoError(t, err)

	m := &fakeMetrics{}
	r, stats := newRunner(t, liveConfig(2), WithMetrics(m), WithFilter(f))

	_, err = r.Run(context.Background(), feed([]*types.Sample{
		{Label: "GET /healthz", Success: true},
		{Label: "GET /cart", Success: true},
		{Label: "GET /cart", Success: false, ResponseCode: "500"},
	}))
	require.NoError(t, err)

	rows := stats.Snapshot()
	require.Len(t, rows, 2)
	assert.Equal(t, "GET /cart", rows[0].Key)
	assert.EqualValues(t, 2, rows[0].Value.Count)
	assert.Equal(t, 1, m.skipped)
	assert.Equal(t, 1, m.success)
	assert.Equal(t, 1, m.failure)
}

func TestRunner_Reset(t *testing.T) {
	r, stats := newRunner(t, liveConfig(1))
	_, err := r.Run(context.Background(), feed([]*types.Sample{{Label: "a", Success: false, ResponseCode: "500"}}))
	require.NoError(t, err)
	before := stats.RunID()

	r.Reset()
	assert.Zero(t, stats.Len())
	assert.Zero(t, r.TopErrors().Len())
	assert.NotEqual(t, before, stats.RunID())
}

func TestNew_Errors(t *testing.T) {
	stats := registry.New[accumulator.Stats](accumulator.SamplingFactory, nil)

	_, err := New(liveConfig(1), classify.DefaultOptions(), nil, nil)
	assert.Error(t, err)

	cfg := liveConfig(1)
	cfg.KeyMode = "thread"
	_, err = New(cfg, classify.DefaultOptions(), stats, nil)
	assert.ErrorContains(t, err, "unknown key mode")

	cfg = liveConfig(1)
	cfg.SnapshotInterval = 0
	_, err = New(cfg, classify.DefaultOptions(), stats, nil)
	assert.Error(t, err)

	cfg = liveConfig(1)
	cfg.Granularity = types.Duration(time.Microsecond)
	_, err = New(cfg, classify.DefaultOptions(), stats, nil)
	assert.Error(t, err)
}

func TestDefaultWorkers(t *testing.T) {
	assert.Positive(t, DefaultWorkers())

	r, _ := newRunner(t, liveConfig(0))
	assert.Equal(t, DefaultWorkers(), r.Workers())
}
