// Package registry implements the live statistics registry: a concurrent map
// from key to accumulator with stable insertion ordering and a distinguished
// overall entry that sees every sample.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/pkg/types"
)

// OverallKey labels the overall entry in snapshots.
const OverallKey = "TOTAL"

// DefaultShards is the number of key map shards used when none is configured.
const DefaultShards = 16

// Accumulator is per-key state updated by samples. The registry serializes
// all calls on one accumulator through that entry's lock.
type Accumulator[R any] interface {
	// Add folds sample into the accumulated state.
	Add(sample *types.Sample)
	// Snapshot returns a readout that stays valid after the lock is released.
	Snapshot() R
}

// Factory creates a fresh accumulator for key.
type Factory[R any] func(key string) Accumulator[R]

// Row is one snapshot line.
type Row[R any] struct {
	Key     string
	Index   uint64
	Overall bool
	Value   R
}

type entry[R any] struct {
	key   string
	index uint64

	mu  sync.Mutex
	acc Accumulator[R]
}

func (e *entry[R]) add(sample *types.Sample) {
	e.mu.Lock()
	e.acc.Add(sample)
	e.mu.Unlock()
}

func (e *entry[R]) read() R {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acc.Snapshot()
}

// shard guards structural changes of its part of the key map only. It is
// never held while an accumulator runs.
type shard[R any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[R]
}

// Registry is safe for concurrent use by many producers and readers.
type Registry[R any] struct {
	factory Factory[R]
	shards  []*shard[R]
	mask    uint64

	nextIndex atomic.Uint64
	overall   atomic.Pointer[entry[R]]
	runID     atomic.Value
	newRunID  func() string

	logger *zap.Logger
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	shards   int
	newRunID func() string
}

// WithShards sets the number of key map shards, rounded up to a power of two.
func WithShards(n int) Option {
	return func(o *options) {
		o.shards = n
	}
}

// WithRunIDs sets the generator of run IDs, uuid.NewString by default.
func WithRunIDs(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newRunID = fn
		}
	}
}

// New creates a registry whose entries are built by factory. The overall
// entry exists from the start.
func New[R any](factory Factory[R], logger *zap.Logger, opts ...Option) *Registry[R] {
	o := options{shards: DefaultShards, newRunID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	n := 1
	for n < o.shards {
		n <<= 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry[R]{
		factory:  factory,
		shards:   make([]*shard[R], n),
		mask:     uint64(n - 1),
		newRunID: o.newRunID,
		logger:   logger,
	}
	for i := range r.shards {
		r.shards[i] = &shard[R]{entries: make(map[string]*entry[R])}
	}
	r.overall.Store(&entry[R]{key: OverallKey, acc: factory(OverallKey)})
	r.runID.Store(r.newRunID())
	return r
}

func (r *Registry[R]) shardFor(key string) *shard[R] {
	return r.shards[xxhash.Sum64String(key)&r.mask]
}

// getOrCreate returns the entry for key, creating it exactly once.
func (r *Registry[R]) getOrCreate(key string) *entry[R] {
	s := r.shardFor(key)

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; ok {
		return e
	}
	e = &entry[R]{
		key:   key,
		index: r.nextIndex.Add(1),
		acc:   r.factory(key),
	}
	s.entries[key] = e

	r.logger.Debug("Registered statistics key",
		zap.String("key", key),
		zap.Uint64("index", e.index))
	return e
}

// Add records sample under key and under the overall entry. Each update is
// atomic for its entry; the pair is not atomic as a whole.
func (r *Registry[R]) Add(key string, sample *types.Sample) {
	if sample == nil || sample.EmptyGroup {
		return
	}
	r.getOrCreate(key).add(sample)
	r.overall.Load().add(sample)
}

// Snapshot returns all keyed rows in insertion order followed by the overall row.
func (r *Registry[R]) Snapshot() []Row[R] {
	var entries []*entry[R]
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			entries = append(entries, e)
		}
		s.mu.RUnlock()
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].index < entries[j].index
	})

	rows := make([]Row[R], 0, len(entries)+1)
	for _, e := range entries {
		rows = append(rows, Row[R]{Key: e.key, Index: e.index, Value: e.read()})
	}
	rows = append(rows, Row[R]{Key: OverallKey, Overall: true, Value: r.overall.Load().read()})
	return rows
}

// Overall returns the readout of the overall entry.
func (r *Registry[R]) Overall() R {
	return r.overall.Load().read()
}

// Len returns the number of keyed entries, excluding the overall entry.
func (r *Registry[R]) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// RunID identifies the current run. It changes on every Clear.
func (r *Registry[R]) RunID() string {
	return r.runID.Load().(string)
}

// Clear drops every keyed entry and re-seeds the overall entry. Adds racing
// with Clear land either in the discarded state or in the new one.
func (r *Registry[R]) Clear() {
	for _, s := range r.shards {
		s.mu.Lock()
	}
	for _, s := range r.shards {
		s.entries = make(map[string]*entry[R])
	}
	r.nextIndex.Store(0)
	r.overall.Store(&entry[R]{key: OverallKey, acc: r.factory(OverallKey)})
	r.runID.Store(r.newRunID())
	for i := len(r.shards) - 1; i >= 0; i-- {
		r.shards[i].mu.Unlock()
	}

	r.logger.Info("Statistics registry cleared", zap.String("run_id", r.RunID()))
}
