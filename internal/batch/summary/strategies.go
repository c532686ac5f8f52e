package summary

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/stats/classify"
	"github.com/edgecomet/loadstats/internal/stats/topk"
)

// ErrUnknownStrategy is returned by Lookup for unregistered names
var ErrUnknownStrategy = errors.New("unknown summary strategy")

// Options are handed to every strategy constructor
type Options struct {
	Classify                    classify.Options
	IgnoreTransactionController bool
	SuppressEmptyOverall        bool
	Logger                      *zap.Logger
}

// Constructor builds a fresh idle Consumer
type Constructor func(opts Options) Consumer

// Strategies is a named set of summarizer constructors
type Strategies struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewStrategies returns an empty set
func NewStrategies() *Strategies {
	return &Strategies{constructors: make(map[string]Constructor)}
}

// DefaultStrategies returns a set with the errors and top errors summarizers
func DefaultStrategies() *Strategies {
	s := NewStrategies()
	s.Register(ErrorsName, func(opts Options) Consumer {
		return NewPipeline[*ErrorCount](NewErrorsSummarizer(opts.Classify), opts.Logger,
			WithSuppressEmptyOverall(opts.SuppressEmptyOverall))
	})
	s.Register(TopErrorsBySamplerName, func(opts Options) Consumer {
		return NewPipeline[*topk.Tracker](NewTopErrorsBySampler(opts.Classify, opts.IgnoreTransactionController), opts.Logger,
			WithSuppressEmptyOverall(opts.SuppressEmptyOverall))
	})
	return s
}

// Register adds or replaces the constructor for name
func (s *Strategies) Register(name string, constructor Constructor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constructors[name] = constructor
}

// Lookup builds the consumer registered as name
func (s *Strategies) Lookup(name string, opts Options) (Consumer, error) {
	s.mu.RLock()
	constructor, ok := s.constructors[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownStrategy, name, s.Names())
	}
	return constructor(opts), nil
}

// Names returns the registered names sorted
func (s *Strategies) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.constructors))
	for name := range s.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
