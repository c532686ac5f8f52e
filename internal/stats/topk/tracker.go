// Package topk tracks how often distinct classification strings occur and
// projects the most frequent ones on demand.
package topk

// DefaultN is the ranking size used by reports.
const DefaultN = 5

// Entry is one ranked classification.
type Entry struct {
	Classification string `json:"classification" yaml:"classification"`
	Count          uint64 `json:"count" yaml:"count"`
}

// Tracker keeps total and error counters plus a frequency table of every
// classification seen. The table is never evicted; only TopN is bounded.
// Tracker is not safe for concurrent use.
type Tracker struct {
	total  uint64
	errors uint64

	// entries keeps first-observation order, index maps classification to slot
	entries []Entry
	index   map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		index: make(map[string]int),
	}
}

// RegisterError counts one occurrence of classification.
func (t *Tracker) RegisterError(classification string) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[classification]; ok {
		t.entries[i].Count++
		return
	}
	t.index[classification] = len(t.entries)
	t.entries = append(t.entries, Entry{Classification: classification, Count: 1})
}

// IncErrors increments the error counter.
func (t *Tracker) IncErrors() {
	t.errors++
}

// IncTotal increments the total counter.
func (t *Tracker) IncTotal() {
	t.total++
}

// Total returns the number of samples counted.
func (t *Tracker) Total() uint64 {
	return t.total
}

// Errors returns the number of failed samples counted.
func (t *Tracker) Errors() uint64 {
	return t.errors
}

// Distinct returns the number of distinct classifications observed.
func (t *Tracker) Distinct() int {
	return len(t.entries)
}

// TopN returns up to n classifications by descending count. Equal counts keep
// the order in which the classifications were first observed. The result is
// never padded.
func (t *Tracker) TopN(n int) []Entry {
	if n <= 0 || len(t.entries) == 0 {
		return nil
	}
	if n > len(t.entries) {
		n = len(t.entries)
	}

	// Single pass selection; a later entry only moves ahead of a strictly
	// smaller count, which keeps ties in first-observed order.
	top := make([]Entry, 0, n)
	for _, e := range t.entries {
		if len(top) == n && e.Count <= top[n-1].Count {
			continue
		}
		pos := len(top)
		for pos > 0 && top[pos-1].Count < e.Count {
			pos--
		}
		if len(top) < n {
			top = append(top, Entry{})
		}
		copy(top[pos+1:], top[pos:len(top)-1])
		top[pos] = e
	}
	return top
}

// Reset clears counters and the frequency table.
func (t *Tracker) Reset() {
	t.total = 0
	t.errors = 0
	t.entries = nil
	t.index = make(map[string]int)
}
