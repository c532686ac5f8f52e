// Package filter selects samples by label.
//
// Pattern syntax:
//
//   - "checkout": case-insensitive exact match
//   - "GET /api/*": case-insensitive wildcard, * matches any run of characters
//   - "~^TX [0-9]+$": case-sensitive regular expression
//   - "~*^tx ": case-insensitive regular expression
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/edgecomet/loadstats/pkg/types"
)

// Kind of a compiled matcher
type Kind int

const (
	KindExact Kind = iota
	KindWildcard
	KindRegexp
)

// Matcher is one compiled label pattern
type Matcher struct {
	source string
	kind   Kind
	value  string
	re     *regexp.Regexp
}

// Compile parses a pattern
func Compile(pattern string) (*Matcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}

	m := &Matcher{source: pattern}
	switch {
	case strings.HasPrefix(pattern, "~*"):
		re, err := regexp.Compile("(?i)" + pattern[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid regexp pattern %q: %w", pattern, err)
		}
		m.kind, m.re = KindRegexp, re
	case strings.HasPrefix(pattern, "~"):
		re, err := regexp.Compile(pattern[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid regexp pattern %q: %w", pattern, err)
		}
		m.kind, m.re = KindRegexp, re
	case strings.Contains(pattern, "*"):
		m.kind, m.value = KindWildcard, strings.ToLower(pattern)
	default:
		m.kind, m.value = KindExact, pattern
	}
	return m, nil
}

func (m *Matcher) Kind() Kind { return m.kind }

func (m *Matcher) String() string { return m.source }

// Match reports whether label matches
func (m *Matcher) Match(label string) bool {
	switch m.kind {
	case KindRegexp:
		return m.re.MatchString(label)
	case KindWildcard:
		return matchWildcard(strings.ToLower(label), m.value)
	default:
		return strings.EqualFold(label, m.value)
	}
}

// matchWildcard matches text against a pattern whose only metacharacter is '*'
func matchWildcard(text, pattern string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return text == pattern
	}

	first, last := parts[0], parts[len(parts)-1]
	if len(text) < len(first)+len(last) || !strings.HasPrefix(text, first) || !strings.HasSuffix(text, last) {
		return false
	}
	text = text[len(first) : len(text)-len(last)]

	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(text, part)
		if idx < 0 {
			return false
		}
		text = text[idx+len(part):]
	}
	return true
}

// Filter keeps samples whose label matches any include pattern (all when none)
// and no exclude pattern
type Filter struct {
	include []*Matcher
	exclude []*Matcher
}

// New compiles include and exclude patterns
func New(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range include {
		m, err := Compile(p)
		if err != nil {
			return nil, fmt.Errorf("include: %w", err)
		}
		f.include = append(f.include, m)
	}
	for _, p := range exclude {
		m, err := Compile(p)
		if err != nil {
			return nil, fmt.Errorf("exclude: %w", err)
		}
		f.exclude = append(f.exclude, m)
	}
	return f, nil
}

// Empty reports whether the filter lets everything through
func (f *Filter) Empty() bool {
	return f == nil || (len(f.include) == 0 && len(f.exclude) == 0)
}

// AllowLabel applies the filter to a label. A nil filter allows everything.
func (f *Filter) AllowLabel(label string) bool {
	if f.Empty() {
		return true
	}
	for _, m := range f.exclude {
		if m.Match(label) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, m := range f.include {
		if m.Match(label) {
			return true
		}
	}
	return false
}

// Allow applies the filter to sample's label
func (f *Filter) Allow(sample *types.Sample) bool {
	return f.AllowLabel(sample.Label)
}
