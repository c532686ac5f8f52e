package types

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sample is one recorded outcome of a test operation.
// Samples are produced once by the load generator and never mutated afterwards.
type Sample struct {
	Timestamp       time.Time     `json:"timestamp" yaml:"timestamp"`
	Elapsed         time.Duration `json:"elapsed" yaml:"elapsed"`
	Label           string        `json:"label" yaml:"label"`
	ThreadName      string        `json:"thread_name,omitempty" yaml:"thread_name,omitempty"`
	Success         bool          `json:"success" yaml:"success"`
	ResponseCode    string        `json:"response_code" yaml:"response_code"`
	ResponseMessage string        `json:"response_message,omitempty" yaml:"response_message,omitempty"`
	FailureMessage  string        `json:"failure_message,omitempty" yaml:"failure_message,omitempty"`
	Bytes           int64         `json:"bytes,omitempty" yaml:"bytes,omitempty"`

	// GroupMarker marks a sample that represents a logical grouping
	// (transaction controller) rather than a leaf request.
	GroupMarker bool `json:"group_marker,omitempty" yaml:"group_marker,omitempty"`
	// EmptyGroup marks a grouping sample without children. Consumers skip it.
	EmptyGroup bool `json:"empty_group,omitempty" yaml:"empty_group,omitempty"`
}

// Transaction controllers report their children in the response message.
var groupMessagePattern = regexp.MustCompile(`^Number of samples in transaction : (\d+), number of failing samples : (\d+)$`)

// ParseGroupMessage reports whether message is a transaction controller summary
// and how many child samples it covered.
func ParseGroupMessage(message string) (isGroup bool, children int) {
	matches := groupMessagePattern.FindStringSubmatch(strings.TrimSpace(message))
	if matches == nil {
		return false, 0
	}
	n, err := strconv.Atoi(matches[1])
	if err != nil {
		return true, 0
	}
	return true, n
}

// MarkGroup derives GroupMarker and EmptyGroup from the response message.
func (s *Sample) MarkGroup() {
	isGroup, children := ParseGroupMessage(s.ResponseMessage)
	s.GroupMarker = isGroup
	s.EmptyGroup = isGroup && children == 0
}

// GroupName returns the thread group part of the thread name.
// JMeter-style thread names look like "Checkout Users 1-15".
func (s *Sample) GroupName() string {
	name := strings.TrimSpace(s.ThreadName)
	idx := strings.LastIndexByte(name, ' ')
	if idx <= 0 {
		return name
	}
	suffix := name[idx+1:]
	dash := strings.IndexByte(suffix, '-')
	if dash <= 0 {
		return name
	}
	if _, err := strconv.Atoi(suffix[:dash]); err != nil {
		return name
	}
	if _, err := strconv.Atoi(suffix[dash+1:]); err != nil {
		return name
	}
	return name[:idx]
}

// QualifiedLabel returns the label prefixed with the thread group name, or the
// bare label when no group name is known.
func (s *Sample) QualifiedLabel() string {
	group := s.GroupName()
	if group == "" {
		return s.Label
	}
	return group + ":" + s.Label
}
