// Package runner drives the live regime: producer workers feed samples into
// the statistics registries while a reader periodically snapshots them.
package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/common/configtypes"
	"github.com/edgecomet/loadstats/internal/live/accumulator"
	"github.com/edgecomet/loadstats/internal/live/registry"
	"github.com/edgecomet/loadstats/internal/stats/aggregator"
	"github.com/edgecomet/loadstats/internal/stats/classify"
	"github.com/edgecomet/loadstats/internal/stats/filter"
	"github.com/edgecomet/loadstats/internal/stats/table"
	"github.com/edgecomet/loadstats/pkg/types"
)

const finalPublishTimeout = 5 * time.Second

// Metrics is the runner's view of the metrics collector
type Metrics interface {
	RecordSample(success, skipped bool)
	IncActiveWorkers()
	DecActiveWorkers()
	RecordSnapshot(duration time.Duration, keys int)
	SetCurrentThroughput(perSecond float64)
	RecordPublish(err error)
}

// Publisher receives every snapshot table
type Publisher interface {
	Publish(ctx context.Context, runID string, t *table.Table) error
}

// Snapshot is one periodic read of the registries
type Snapshot struct {
	RunID     string
	TakenAt   time.Time
	Stats     *table.Table
	TopErrors []registry.Row[accumulator.TopErrors]
	Final     bool
}

// Option configures a Runner
type Option func(*Runner)

func WithMetrics(m Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithFilter skips samples whose label the filter rejects
func WithFilter(f *filter.Filter) Option {
	return func(r *Runner) { r.filter = f }
}

// WithSnapshotHook is called after every snapshot, from the reader goroutine
func WithSnapshotHook(fn func(*Snapshot)) Option {
	return func(r *Runner) { r.hook = fn }
}

// Runner owns the worker pool and snapshot loop of one live run
type Runner struct {
	stats     *registry.Registry[accumulator.Stats]
	errors    *registry.Registry[accumulator.TopErrors]
	keyFunc   registry.KeyFunc
	workers   int
	interval  time.Duration
	bucket    time.Duration
	metrics   Metrics
	publisher Publisher
	hook      func(*Snapshot)
	filter    *filter.Filter
	logger    *zap.Logger

	rateMu sync.Mutex
	rate   *aggregator.TimeRateAggregator
}

// New builds a runner around stats. cfg must have defaults applied.
func New(cfg configtypes.LiveConfig, opts classify.Options, stats *registry.Registry[accumulator.Stats], logger *zap.Logger, options ...Option) (*Runner, error) {
	if stats == nil {
		return nil, fmt.Errorf("statistics registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	keyFunc, err := registry.LookupKeyFunc(cfg.KeyMode)
	if err != nil {
		return nil, err
	}
	interval := cfg.SnapshotInterval.ToDuration()
	if interval <= 0 {
		return nil, fmt.Errorf("snapshot interval must be positive, got %s", interval)
	}
	bucket := cfg.Granularity.ToDuration()
	if bucket < time.Millisecond {
		return nil, fmt.Errorf("granularity must be at least 1ms, got %s", bucket)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	r := &Runner{
		stats:    stats,
		errors:   registry.New[accumulator.TopErrors](accumulator.ErrorTrackerFactory(opts, cfg.TopErrors), logger),
		keyFunc:  keyFunc,
		workers:  workers,
		interval: interval,
		bucket:   bucket,
		logger:   logger,
		rate:     aggregator.NewTimeRateAggregator(bucket.Milliseconds()),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// DefaultWorkers is the number of logical CPUs
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Workers returns the size of the worker pool
func (r *Runner) Workers() int {
	return r.workers
}

// TopErrors exposes the per-key error ranking registry
func (r *Runner) TopErrors() *registry.Registry[accumulator.TopErrors] {
	return r.errors
}

// Reset clears both registries and starts a new run ID
func (r *Runner) Reset() {
	r.stats.Clear()
	r.errors.Clear()
	r.rateMu.Lock()
	r.rate.Reset()
	r.rateMu.Unlock()
}

// Run consumes samples until the channel is closed or ctx is done, then takes
// and returns a final snapshot. The error is ctx.Err() on cancellation.
func (r *Runner) Run(ctx context.Context, samples <-chan *types.Sample) (*Snapshot, error) {
	r.logger.Info("Live run started",
		zap.String("run_id", r.stats.RunID()),
		zap.Int("workers", r.workers),
		zap.Duration("snapshot_interval", r.interval),
		zap.Duration("granularity", r.bucket))

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, samples)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	snapshotTicker := time.NewTicker(r.interval)
	defer snapshotTicker.Stop()
	bucketTicker := time.NewTicker(r.bucket)
	defer bucketTicker.Stop()

loop:
	for {
		select {
		case <-done:
			break loop
		case <-snapshotTicker.C:
			r.snapshot(ctx, false)
		case <-bucketTicker.C:
			r.closeBucket()
		}
	}

	final := r.snapshot(ctx, true)
	r.logger.Info("Live run finished",
		zap.String("run_id", final.RunID),
		zap.Int("keys", final.Stats.Len()-1))

	return final, ctx.Err()
}

func (r *Runner) worker(ctx context.Context, samples <-chan *types.Sample) {
	if r.metrics != nil {
		r.metrics.IncActiveWorkers()
		defer r.metrics.DecActiveWorkers()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-samples:
			if !ok {
				return
			}
			r.handle(sample)
		}
	}
}

func (r *Runner) handle(sample *types.Sample) {
	if sample == nil {
		return
	}
	skipped := sample.EmptyGroup || !r.filter.Allow(sample)
	if !skipped {
		key := r.keyFunc(sample)
		r.stats.Add(key, sample)
		r.errors.Add(key, sample)

		r.rateMu.Lock()
		r.rate.AddValue(1)
		r.rateMu.Unlock()
	}
	if r.metrics != nil {
		r.metrics.RecordSample(sample.Success, skipped)
	}
}

// closeBucket publishes the sample rate of the bucket that just ended
func (r *Runner) closeBucket() {
	r.rateMu.Lock()
	perSecond := r.rate.Result()
	r.rate.Reset()
	r.rateMu.Unlock()

	if r.metrics != nil {
		r.metrics.SetCurrentThroughput(perSecond)
	}
}

func (r *Runner) snapshot(ctx context.Context, final bool) *Snapshot {
	start := time.Now()
	rows := r.stats.Snapshot()
	took := time.Since(start)

	snap := &Snapshot{
		RunID:     r.stats.RunID(),
		TakenAt:   start.UTC(),
		Stats:     accumulator.StatsTable(rows),
		TopErrors: r.errors.Snapshot(),
		Final:     final,
	}

	if r.metrics != nil {
		r.metrics.RecordSnapshot(took, len(rows)-1)
	}

	overall := rows[len(rows)-1].Value
	r.logger.Info("Live statistics",
		zap.Int64("samples", overall.Count),
		zap.Int64("errors", overall.Errors),
		zap.Float64("error_percent", overall.ErrorPercent),
		zap.Float64("throughput", overall.Throughput),
		zap.Int("keys", len(rows)-1),
		zap.Bool("final", final))

	if r.publisher != nil {
		pubCtx := ctx
		if final {
			var cancel context.CancelFunc
			pubCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), finalPublishTimeout)
			defer cancel()
		}
		err := r.publisher.Publish(pubCtx, snap.RunID, snap.Stats)
		if err != nil {
			r.logger.Warn("Failed to publish snapshot", zap.String("run_id", snap.RunID), zap.Error(err))
		}
		if r.metrics != nil {
			r.metrics.RecordPublish(err)
		}
	}

	if r.hook != nil {
		r.hook(snap)
	}
	return snap
}
