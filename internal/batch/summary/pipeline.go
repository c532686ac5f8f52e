// Package summary runs single-pass summarizers over an ordered sample sequence
// and turns their per-key state into a result table.
package summary

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/stats/table"
	"github.com/edgecomet/loadstats/pkg/types"
)

var (
	ErrNotStarted     = errors.New("summary pipeline not started")
	ErrAlreadyStarted = errors.New("summary pipeline already started")
	ErrFinished       = errors.New("summary pipeline already finished")
	ErrNotFinished    = errors.New("summary pipeline not finished")
)

// State of a Pipeline. Transitions only go forward.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Info is the per-key state of a summarizer. Overall is set on the single
// info that aggregates every consumed sample.
type Info[D any] struct {
	Key     string
	Overall bool
	Data    D
}

// Summarizer is the pluggable half of a Pipeline
type Summarizer[D any] interface {
	// Name identifies the produced table
	Name() string
	// Reset clears state kept outside of the infos; called by Pipeline.Start
	Reset()
	KeyFromSample(sample *types.Sample) string
	NewData() D
	// UpdateData is called twice per sample: keyed info first, then overall
	UpdateData(info *Info[D], sample *types.Sample)
	Titles() table.Row
	// DataRow formats one info. A nil row is left out of the table.
	// overall is the overall data, available for ratio columns.
	DataRow(info *Info[D], overall D) table.Row
	// HasOverallRow reports whether the overall info is rendered at all
	HasOverallRow() bool
}

// Consumer is the type-erased view of a Pipeline, used by callers that run
// summarizers with different payload types side by side.
type Consumer interface {
	Name() string
	State() State
	Start() error
	Consume(sample *types.Sample) error
	Finish() error
	BuildTable() (*table.Table, error)
}

// PipelineOption configures a Pipeline
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	suppressEmptyOverall bool
}

// WithSuppressEmptyOverall drops the overall row when no keyed row was produced
func WithSuppressEmptyOverall(suppress bool) PipelineOption {
	return func(o *pipelineOptions) {
		o.suppressEmptyOverall = suppress
	}
}

// Pipeline drives one Summarizer through Idle -> Running -> Finished.
// It is not safe for concurrent use.
type Pipeline[D any] struct {
	summarizer Summarizer[D]
	logger     *zap.Logger
	opts       pipelineOptions

	state   State
	keyed   map[string]*Info[D]
	order   []*Info[D]
	overall *Info[D]
	skipped uint64
}

// NewPipeline returns an idle pipeline for summarizer
func NewPipeline[D any](summarizer Summarizer[D], logger *zap.Logger, opts ...PipelineOption) *Pipeline[D] {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline[D]{
		summarizer: summarizer,
		logger:     logger.With(zap.String("summarizer", summarizer.Name())),
	}
	for _, opt := range opts {
		opt(&p.opts)
	}
	return p
}

func (p *Pipeline[D]) Name() string {
	return p.summarizer.Name()
}

func (p *Pipeline[D]) State() State {
	return p.state
}

// Start resets every info and moves Idle -> Running
func (p *Pipeline[D]) Start() error {
	switch p.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateFinished:
		return ErrFinished
	}

	p.summarizer.Reset()
	p.keyed = make(map[string]*Info[D])
	p.order = p.order[:0]
	p.overall = &Info[D]{Overall: true, Data: p.summarizer.NewData()}
	p.skipped = 0
	p.state = StateRunning

	p.logger.Debug("Summary pipeline started")
	return nil
}

// Consume feeds one sample. Empty groups are skipped without touching any info.
func (p *Pipeline[D]) Consume(sample *types.Sample) error {
	switch p.state {
	case StateIdle:
		return ErrNotStarted
	case StateFinished:
		return ErrFinished
	}
	if sample == nil {
		return nil
	}
	if sample.EmptyGroup {
		p.skipped++
		return nil
	}

	key := p.summarizer.KeyFromSample(sample)
	info, ok := p.keyed[key]
	if !ok {
		info = &Info[D]{Key: key, Data: p.summarizer.NewData()}
		p.keyed[key] = info
		p.order = append(p.order, info)
	}

	p.summarizer.UpdateData(info, sample)
	p.summarizer.UpdateData(p.overall, sample)
	return nil
}

// Finish moves Running -> Finished. Finished is terminal.
func (p *Pipeline[D]) Finish() error {
	switch p.state {
	case StateIdle:
		return ErrNotStarted
	case StateFinished:
		return ErrFinished
	}
	p.state = StateFinished

	p.logger.Debug("Summary pipeline finished",
		zap.Int("keys", len(p.order)),
		zap.Uint64("skipped_empty_groups", p.skipped))
	return nil
}

// BuildTable renders titles, keyed rows in first-appearance order, then the overall row
func (p *Pipeline[D]) BuildTable() (*table.Table, error) {
	if p.state != StateFinished {
		return nil, ErrNotFinished
	}

	t := table.New(p.summarizer.Name(), p.summarizer.Titles())
	for _, info := range p.order {
		t.AddRow(p.summarizer.DataRow(info, p.overall.Data))
	}

	keyedRows := t.Len()
	if p.summarizer.HasOverallRow() && !(p.opts.suppressEmptyOverall && keyedRows == 0) {
		t.AddRow(p.summarizer.DataRow(p.overall, p.overall.Data))
	}
	return t, nil
}

// Keys returns the distinct keys in first-appearance order
func (p *Pipeline[D]) Keys() []string {
	keys := make([]string, len(p.order))
	for i, info := range p.order {
		keys[i] = info.Key
	}
	return keys
}

// Overall returns the overall info, nil before Start
func (p *Pipeline[D]) Overall() *Info[D] {
	return p.overall
}
