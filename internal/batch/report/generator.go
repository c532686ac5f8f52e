// Package report runs the configured summarizers over a sample source and
// writes the resulting tables.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/batch/summary"
	"github.com/edgecomet/loadstats/internal/common/configtypes"
	"github.com/edgecomet/loadstats/internal/replay"
	"github.com/edgecomet/loadstats/internal/stats/classify"
	"github.com/edgecomet/loadstats/internal/stats/filter"
	"github.com/edgecomet/loadstats/internal/stats/table"
	"github.com/edgecomet/loadstats/pkg/types"
)

// cancellation is checked once per this many samples
const ctxCheckInterval = 1024

// Source yields samples in order and io.EOF at the end
type Source interface {
	Next() (*types.Sample, error)
}

// Report is the outcome of one generation run
type Report struct {
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Samples     uint64         `json:"samples" yaml:"samples"`
	Filtered    uint64         `json:"filtered,omitempty" yaml:"filtered,omitempty"`
	Malformed   uint64         `json:"malformed,omitempty" yaml:"malformed,omitempty"`
	Tables      []*table.Table `json:"tables" yaml:"tables"`
}

// Table returns the table produced by the named summarizer
func (r *Report) Table(name string) (*table.Table, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Generator builds reports from a fixed list of summarizers
type Generator struct {
	names      []string
	strategies *summary.Strategies
	opts       summary.Options
	filter     *filter.Filter
	logger     *zap.Logger
}

// GeneratorOption customizes a Generator
type GeneratorOption func(*Generator)

// WithFilter drops samples the filter rejects before any summarizer sees them
func WithFilter(f *filter.Filter) GeneratorOption {
	return func(g *Generator) {
		g.filter = f
	}
}

// NewGenerator resolves cfg.Summarizers against strategies so unknown names fail early
func NewGenerator(cfg configtypes.ReportConfig, strategies *summary.Strategies, logger *zap.Logger, options ...GeneratorOption) (*Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strategies == nil {
		strategies = summary.DefaultStrategies()
	}
	if len(cfg.Summarizers) == 0 {
		return nil, fmt.Errorf("no summarizers configured")
	}

	opts := summary.Options{
		Classify:                    classify.Options{UseAssertionMessage: cfg.AssertionMessageEnabled()},
		IgnoreTransactionController: cfg.IgnoreTransactionController,
		SuppressEmptyOverall:        cfg.SuppressEmptyOverall,
		Logger:                      logger,
	}

	for _, name := range cfg.Summarizers {
		if _, err := strategies.Lookup(name, opts); err != nil {
			return nil, err
		}
	}

	g := &Generator{
		names:      append([]string(nil), cfg.Summarizers...),
		strategies: strategies,
		opts:       opts,
		logger:     logger,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Run consumes src to the end and returns one table per summarizer, in configuration order
func (g *Generator) Run(ctx context.Context, src Source) (*Report, error) {
	consumers := make([]summary.Consumer, 0, len(g.names))
	for _, name := range g.names {
		c, err := g.strategies.Lookup(name, g.opts)
		if err != nil {
			return nil, err
		}
		if err := c.Start(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		consumers = append(consumers, c)
	}

	start := time.Now()
	var count, filtered, malformed uint64
	for read := uint64(0); ; read++ {
		if read%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		sample, err := src.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, replay.ErrMalformedRecord) {
			malformed++
			g.logger.Warn("Skipping malformed record", zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read sample %d: %w", read+1, err)
		}
		if !g.filter.Allow(sample) {
			filtered++
			continue
		}
		count++

		for _, c := range consumers {
			if err := c.Consume(sample); err != nil {
				return nil, fmt.Errorf("%s: %w", c.Name(), err)
			}
		}
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Samples:     count,
		Filtered:    filtered,
		Malformed:   malformed,
		Tables:      make([]*table.Table, 0, len(consumers)),
	}
	for _, c := range consumers {
		if err := c.Finish(); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name(), err)
		}
		t, err := c.BuildTable()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name(), err)
		}
		report.Tables = append(report.Tables, t)
	}

	g.logger.Info("Report generated",
		zap.Uint64("samples", count),
		zap.Uint64("filtered", filtered),
		zap.Uint64("malformed", malformed),
		zap.Strings("summarizers", g.names),
		zap.Duration("duration", time.Since(start)))

	return report, nil
}

// SliceSource adapts an in-memory slice to Source
type SliceSource struct {
	samples []*types.Sample
	pos     int
}

func NewSliceSource(samples []*types.Sample) *SliceSource {
	return &SliceSource{samples: samples}
}

func (s *SliceSource) Next() (*types.Sample, error) {
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	sample := s.samples[s.pos]
	s.pos++
	return sample, nil
}
