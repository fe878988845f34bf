// Package diagnostics collects per-record notes produced by the pipeline stages.
//
// Every note is keyed by the record's source index. Each stage owns one
// Collector; an Aggregator merges the collectors of all stages in a fixed
// order so the notes about record i from every stage end up side by side.
package diagnostics

import (
	"fmt"
	"sort"
)

// Kind classifies a diagnostic
type Kind string

const (
	// KindMessage is informational only
	KindMessage Kind = "message"
	// KindWarning means a fallback or default was applied; the record is kept
	KindWarning Kind = "warning"
	// KindError means the record was dropped
	KindError Kind = "error"
)

// Map holds diagnostic lines by source index.
type Map map[int][]string

// Add appends a line at index.
func (m Map) Add(index int, line string) {
	m[index] = append(m[index], line)
}

// Indices returns the indices that carry at least one line, ascending.
func (m Map) Indices() []int {
	indices := make([]int, 0, len(m))
	for index, lines := range m {
		if len(lines) > 0 {
			indices = append(indices, index)
		}
	}
	sort.Ints(indices)
	return indices
}

// Count returns the total number of lines
func (m Map) Count() int {
	total := 0
	for _, lines := range m {
		total += len(lines)
	}
	return total
}

// Collector gathers the diagnostics of one stage.
// It is not safe for concurrent use; each run owns its collectors.
type Collector struct {
	stage    Stage
	messages Map
	warnings Map
	errors   Map
}

// NewCollector creates an empty collector for stage
func NewCollector(stage Stage) *Collector {
	return &Collector{
		stage:    stage,
		messages: make(Map),
		warnings: make(Map),
		errors:   make(Map),
	}
}

// Stage returns the stage the collector belongs to
func (c *Collector) Stage() Stage {
	return c.stage
}

// Message records an informational line at index
func (c *Collector) Message(index int, format string, args ...interface{}) {
	c.messages.Add(index, fmt.Sprintf(format, args...))
}

// Warning records a warning at index
func (c *Collector) Warning(index int, format string, args ...interface{}) {
	c.warnings.Add(index, fmt.Sprintf(format, args...))
}

// Error records an error at index
func (c *Collector) Error(index int, format string, args ...interface{}) {
	c.errors.Add(index, fmt.Sprintf(format, args...))
}

// Kind returns the map for one kind of diagnostic
func (c *Collector) Kind(kind Kind) Map {
	switch kind {
	case KindMessage:
		return c.messages
	case KindWarning:
		return c.warnings
	default:
		return c.errors
	}
}

// Messages returns the informational lines
func (c *Collector) Messages() Map { return c.messages }

// Warnings returns the warnings
func (c *Collector) Warnings() Map { return c.warnings }

// Errors returns the errors
func (c *Collector) Errors() Map { return c.errors }

// HasErrors reports whether index has at least one error
func (c *Collector) HasErrors(index int) bool {
	return len(c.errors[index]) > 0
}

// Summary counts lines per kind
func (c *Collector) Summary() Summary {
	return Summary{
		Messages: c.messages.Count(),
		Warnings: c.warnings.Count(),
		Errors:   c.errors.Count(),
	}
}

// Summary is a count of diagnostics per kind
type Summary struct {
	Messages int `json:"messages"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// String returns a human-readable representation of the summary
func (s Summary) String() string {
	return fmt.Sprintf("%d messages, %d warnings, %d errors", s.Messages, s.Warnings, s.Errors)
}
